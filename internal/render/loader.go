package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"url2pdf/internal/domain"
	"url2pdf/internal/infra/logging"
)

// Load points the tab at target under the policy's user agent, request
// blocking and navigation wait. Failures wrap domain.ErrNavigation.
func Load(ctx context.Context, b Browser, target string, p domain.RenderPolicy) error {
	if p.UserAgent != "" {
		if err := b.SetUserAgent(ctx, p.UserAgent); err != nil {
			return fmt.Errorf("%w: set user agent: %v", domain.ErrNavigation, err)
		}
	}
	if err := b.BlockResources(ctx, p.BlockedResourceTypes); err != nil {
		return fmt.Errorf("%w: enable request interception: %v", domain.ErrNavigation, err)
	}

	start := time.Now()
	navCtx, cancel := context.WithTimeout(ctx, p.NavigationTimeout)
	err := b.Navigate(navCtx, target, p.NavigationWait)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: no %s network idle within %s", domain.ErrNavigation, p.NavigationWait, p.NavigationTimeout)
		}
		return fmt.Errorf("%w: %v", domain.ErrNavigation, err)
	}
	logging.Info("Page loaded", "target", target, "wait", string(p.NavigationWait), "elapsed_ms", time.Since(start).Milliseconds())

	if p.SiteMarkerSelector != "" {
		markerCtx, cancel := context.WithTimeout(ctx, p.SiteMarkerTimeout)
		err := b.WaitForSelector(markerCtx, p.SiteMarkerSelector)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %v", domain.ErrNavigation, ctx.Err())
			}
			logging.Info("Site marker not found", "selector", p.SiteMarkerSelector, "target", target)
		} else {
			logging.Info("Site marker detected", "selector", p.SiteMarkerSelector, "target", target)
		}
	}
	return nil
}
