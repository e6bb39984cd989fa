package chrome

import (
	"context"
	"fmt"
	"os"

	"github.com/go-rod/rod/lib/launcher"

	"url2pdf/internal/config"
)

// BundledBinary resolves the portable browser for the primary launch. An
// explicit chrome_path wins; otherwise rod's managed Chromium under
// bundle_dir is used, downloaded on first use when bundle_download is set.
func BundledBinary(cfg config.BrowserConfig) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		if cfg.ChromePath != "" {
			if _, err := os.Stat(cfg.ChromePath); err != nil {
				return "", fmt.Errorf("chrome_path: %w", err)
			}
			return cfg.ChromePath, nil
		}

		b := launcher.NewBrowser()
		b.Context = ctx
		if cfg.BundleDir != "" {
			b.RootDir = cfg.BundleDir
		}
		if cfg.BundleDownload {
			path, err := b.Get()
			if err != nil {
				return "", fmt.Errorf("bundled browser: %w", err)
			}
			return path, nil
		}
		if err := b.Validate(); err != nil {
			return "", fmt.Errorf("bundled browser not installed in %s: %w", b.Dir(), err)
		}
		return b.BinPath(), nil
	}
}
