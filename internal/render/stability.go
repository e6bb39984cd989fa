package render

import (
	"context"
	"fmt"
	"time"

	"url2pdf/internal/domain"
	"url2pdf/internal/infra/logging"
)

// Convergence is the outcome of the height convergence loop.
type Convergence struct {
	Iterations  int
	Height      int64
	StableReads int
	Converged   bool
}

// Detector decides when a loaded page has stopped changing.
type Detector struct {
	Sleep SleepFunc
	// MaxIterations caps the height convergence loop.
	MaxIterations int
	// StableReads is how many consecutive equal heights end the loop early.
	StableReads int
	ScrollPause time.Duration
	// FinalPause runs after scrolling back to the top.
	FinalPause time.Duration
}

// NewDetector returns a Detector with the production loop settings.
func NewDetector(sleep SleepFunc) *Detector {
	if sleep == nil {
		sleep = Sleep
	}
	return &Detector{
		Sleep:         sleep,
		MaxIterations: 10,
		StableReads:   3,
		ScrollPause:   500 * time.Millisecond,
		FinalPause:    time.Second,
	}
}

// AwaitStable waits for images and fonts, then applies the policy's stability
// mode. A page whose text stays below p.MinTextLength fails with
// domain.ErrEmptyPage.
func (d *Detector) AwaitStable(ctx context.Context, b Browser, p domain.RenderPolicy) (Convergence, error) {
	var conv Convergence

	if err := b.Evaluate(ctx, waitImagesJS, nil); err != nil {
		return conv, fmt.Errorf("%w: wait for images: %v", domain.ErrNavigation, err)
	}
	if err := b.Evaluate(ctx, waitFontsJS, nil); err != nil {
		return conv, fmt.Errorf("%w: wait for fonts: %v", domain.ErrNavigation, err)
	}
	if err := d.Sleep(ctx, p.SettleDelay); err != nil {
		return conv, fmt.Errorf("%w: %w", domain.ErrNavigation, err)
	}

	if p.Stability == domain.StabilityConvergence {
		var err error
		if conv, err = d.converge(ctx, b); err != nil {
			return conv, err
		}
		logging.Info("Page height settled",
			"height", conv.Height,
			"iterations", conv.Iterations,
			"converged", conv.Converged,
		)
	}

	if p.MinTextLength > 0 {
		var n int
		if err := b.Evaluate(ctx, textLengthJS, &n); err != nil {
			return conv, fmt.Errorf("%w: measure content: %v", domain.ErrNavigation, err)
		}
		if n < p.MinTextLength {
			return conv, fmt.Errorf("%w: %d characters of text, need %d", domain.ErrEmptyPage, n, p.MinTextLength)
		}
	}
	return conv, nil
}

// converge reads scrollHeight until it repeats StableReads times in a row or
// MaxIterations is reached, scrolling to the bottom after each read to
// trigger lazy loading. It then scrolls back to the top. Hitting the cap is
// not an error.
func (d *Detector) converge(ctx context.Context, b Browser) (Convergence, error) {
	var (
		conv     Convergence
		previous int64
	)
	for conv.Iterations < d.MaxIterations {
		conv.Iterations++

		var height int64
		if err := b.Evaluate(ctx, scrollHeightJS, &height); err != nil {
			return conv, fmt.Errorf("%w: read document height: %v", domain.ErrNavigation, err)
		}
		if height == previous {
			conv.StableReads++
			if conv.StableReads >= d.StableReads {
				conv.Converged = true
				break
			}
		} else {
			conv.StableReads = 0
			previous = height
		}
		conv.Height = previous
		logging.Debug("Document height", "iteration", conv.Iterations, "height", height, "stable_reads", conv.StableReads)

		if err := b.Evaluate(ctx, scrollBottomJS, nil); err != nil {
			return conv, fmt.Errorf("%w: scroll to bottom: %v", domain.ErrNavigation, err)
		}
		if err := d.Sleep(ctx, d.ScrollPause); err != nil {
			return conv, fmt.Errorf("%w: %w", domain.ErrNavigation, err)
		}
	}

	if err := b.Evaluate(ctx, scrollTopJS, nil); err != nil {
		return conv, fmt.Errorf("%w: scroll to top: %v", domain.ErrNavigation, err)
	}
	if err := d.Sleep(ctx, d.FinalPause); err != nil {
		return conv, fmt.Errorf("%w: %w", domain.ErrNavigation, err)
	}
	return conv, nil
}
