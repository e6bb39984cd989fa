package chrome

import (
	"context"
	"os"
	"time"

	"url2pdf/internal/config"
	"url2pdf/internal/domain"
	"url2pdf/internal/infra/logging"
	"url2pdf/internal/render"
)

var _ render.Provisioner = (*Provisioner)(nil)

// Provisioner launches one browser per call: first the bundled binary, then,
// when allowed, the system browser.
type Provisioner struct {
	caps        Capabilities
	profileBase string
	resolve     func(ctx context.Context) (string, error)
	launch      func(ctx context.Context, caps Capabilities, execPath, profileBase string) (render.Browser, error)
}

// NewProvisioner validates the capability descriptor derived from cfg.
func NewProvisioner(cfg config.BrowserConfig) (*Provisioner, error) {
	caps := CapabilitiesFromConfig(cfg)
	if err := caps.Validate(); err != nil {
		return nil, err
	}
	return &Provisioner{
		caps:        caps,
		profileBase: cfg.UserDataDir,
		resolve:     BundledBinary(cfg),
		launch: func(ctx context.Context, caps Capabilities, execPath, profileBase string) (render.Browser, error) {
			s, err := launch(ctx, caps, execPath, profileBase)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}, nil
}

// Provision returns a running browser or a *domain.LaunchError carrying the
// failure of each attempt.
func (p *Provisioner) Provision(ctx context.Context, fallback bool) (render.Browser, error) {
	start := time.Now()

	b, primaryErr := p.launchBundled(ctx)
	if primaryErr == nil {
		logging.Info("Browser launched", "strategy", "bundled", "elapsed_ms", time.Since(start).Milliseconds())
		return b, nil
	}
	if !fallback || ctx.Err() != nil {
		logging.Error("Browser launch failed", "strategy", "bundled", "error", primaryErr)
		return nil, &domain.LaunchError{Primary: primaryErr}
	}

	logging.Warn("Bundled browser launch failed, trying system browser", "error", primaryErr)
	b, fallbackErr := p.launch(ctx, p.caps.ForSystemBrowser(), "", p.profileBase)
	if fallbackErr != nil {
		logging.Error("Both bundled and system browser failed", "bundled_error", primaryErr, "system_error", fallbackErr)
		return nil, &domain.LaunchError{Primary: primaryErr, Fallback: fallbackErr}
	}
	logging.Info("Browser launched", "strategy", "system", "elapsed_ms", time.Since(start).Milliseconds())
	return b, nil
}

func (p *Provisioner) launchBundled(ctx context.Context) (render.Browser, error) {
	path, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return p.launch(ctx, p.caps, path, p.profileBase)
}

// CheckProfileBase verifies that temp profiles can be created under the
// configured user_data_dir.
func (p *Provisioner) CheckProfileBase() error {
	dir, err := os.MkdirTemp(p.profileBase, "url2pdf-check-*")
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}
