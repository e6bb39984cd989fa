package render

import (
	"context"
	"net/url"
	"time"

	"url2pdf/internal/domain"
	"url2pdf/internal/infra/logging"
)

// Pipeline runs provision, load, stabilize and capture for one target.
type Pipeline struct {
	Provisioner    Provisioner
	Detector       *Detector
	Print          PrintOptions
	CaptureTimeout time.Duration
}

// NewPipeline returns a Pipeline printing A4 with the production detector.
func NewPipeline(prov Provisioner, captureTimeout time.Duration) *Pipeline {
	return &Pipeline{
		Provisioner:    prov,
		Detector:       NewDetector(Sleep),
		Print:          A4Options(),
		CaptureTimeout: captureTimeout,
	}
}

// Render produces a PDF of target under policy p. The browser it launches is
// closed before Render returns, whatever the outcome.
func (pl *Pipeline) Render(ctx context.Context, p domain.RenderPolicy, target *url.URL) (*domain.RenderResult, error) {
	href := target.String()
	start := time.Now()
	logging.Info("Starting PDF generation", "target", href, "policy", p.Name)

	var result *domain.RenderResult
	err := withSession(ctx, pl.Provisioner, p.LaunchFallback, func(b Browser) error {
		if err := Load(ctx, b, href, p); err != nil {
			return err
		}
		if _, err := pl.Detector.AwaitStable(ctx, b, p); err != nil {
			return err
		}
		res, err := Capture(ctx, b, p, pl.Print, pl.CaptureTimeout)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		logging.Error("PDF generation failed", "target", href, "policy", p.Name, "error", err)
		return nil, err
	}
	logging.Info("PDF generation finished",
		"target", href,
		"filename", result.Filename,
		"bytes", len(result.PDF),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// withSession provisions a browser, runs fn with it and closes the browser on
// every exit path, panics included.
func withSession(ctx context.Context, prov Provisioner, fallback bool, fn func(Browser) error) error {
	b, err := prov.Provision(ctx, fallback)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			logging.Warn("Browser close failed", "error", cerr)
		}
	}()
	return fn(b)
}
