package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"url2pdf/internal/domain"
	"url2pdf/internal/infra/logging"
)

// Capture prints the current page and names the result after its title.
// Print failures wrap domain.ErrCapture; a title that cannot be read only
// falls back to p.DefaultFilename.
func Capture(ctx context.Context, b Browser, p domain.RenderPolicy, opts PrintOptions, timeout time.Duration) (*domain.RenderResult, error) {
	printCtx, cancel := context.WithTimeout(ctx, timeout)
	pdf, err := b.PrintPDF(printCtx, opts)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: print did not finish within %s", domain.ErrCapture, timeout)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCapture, err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: browser returned an empty document", domain.ErrCapture)
	}
	logging.Info("PDF generated", "bytes", len(pdf))

	title, err := b.Title(ctx)
	if err != nil {
		logging.Warn("Could not extract title for filename", "error", err)
		title = ""
	}
	return &domain.RenderResult{
		PDF:      pdf,
		Filename: SuggestFilename(title, p.DefaultFilename),
	}, nil
}
