package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"url2pdf/internal/domain"
	"url2pdf/internal/infra/logging"
	"url2pdf/internal/render"
)

var _ render.Browser = (*Session)(nil)

// Session is one Chrome process and its first tab, driven over CDP.
type Session struct {
	tabCtx     context.Context
	tabCancel  context.CancelFunc
	allocClose context.CancelFunc
	profileDir string

	closeOnce sync.Once
	closeErr  error
}

// launch starts Chrome with caps and opens one tab. execPath may be empty to
// use whatever browser chromedp discovers. The process outlives ctx; it ends
// with Close.
func launch(ctx context.Context, caps Capabilities, execPath, profileBase string) (*Session, error) {
	dir, err := os.MkdirTemp(profileBase, "url2pdf-profile-*")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp profile dir: %w", err)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), caps.allocatorOptions(execPath, dir)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	s := &Session{
		tabCtx:     tabCtx,
		tabCancel:  tabCancel,
		allocClose: allocCancel,
		profileDir: dir,
	}

	// The first Run on a fresh context starts the browser. It must not carry
	// a deadline, or the browser would die with it.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(tabCtx,
			emulation.SetDeviceMetricsOverride(int64(caps.ViewportWidth), int64(caps.ViewportHeight), caps.DeviceScale, false),
		)
	}()

	timer := time.NewTimer(caps.LaunchTimeout)
	defer timer.Stop()
	select {
	case err = <-started:
	case <-timer.C:
		err = fmt.Errorf("browser did not start within %s", caps.LaunchTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		s.teardown()
		return nil, err
	}
	return s, nil
}

// run executes actions on the tab, bounded by ctx's deadline and
// cancellation.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, dl)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Session) SetUserAgent(ctx context.Context, ua string) error {
	return s.run(ctx, emulation.SetUserAgentOverride(ua))
}

// BlockResources turns on Fetch interception and fails paused requests whose
// resource type is listed, case-insensitively. Everything else continues.
func (s *Session) BlockResources(ctx context.Context, types []string) error {
	if len(types) == 0 {
		return nil
	}
	blocked := make(map[string]bool, len(types))
	for _, t := range types {
		blocked[strings.ToLower(t)] = true
	}

	chromedp.ListenTarget(s.tabCtx, func(ev any) {
		e, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			cmdCtx, cancel := context.WithTimeout(s.tabCtx, 2*time.Second)
			defer cancel()
			c := chromedp.FromContext(cmdCtx)
			if c == nil || c.Target == nil {
				return
			}
			exec := cdp.WithExecutor(cmdCtx, c.Target)

			var err error
			if blocked[strings.ToLower(string(e.ResourceType))] {
				err = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(exec)
			} else {
				err = fetch.ContinueRequest(e.RequestID).Do(exec)
			}
			if err != nil {
				logging.Debug("Intercepted request not resolved", "url", e.Request.URL, "error", err)
			}
		}()
	})
	return s.run(ctx, fetch.Enable())
}

// lifecycleEvent maps a wait mode to Chrome's page lifecycle event. Chrome
// fires networkAlmostIdle at <=2 connections for 500ms and networkIdle at 0.
func lifecycleEvent(wait domain.WaitMode) string {
	if wait == domain.WaitLenient {
		return "networkAlmostIdle"
	}
	return "networkIdle"
}

// Navigate loads url and waits for the lifecycle event matching wait on the
// new document's loader.
func (s *Session) Navigate(ctx context.Context, url string, wait domain.WaitMode) error {
	want := lifecycleEvent(wait)
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return err
		}

		var (
			mu      sync.Mutex
			reached = make(map[cdp.LoaderID]bool)
			signal  = make(chan struct{}, 1)
		)
		listenCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		chromedp.ListenTarget(listenCtx, func(ev any) {
			e, ok := ev.(*page.EventLifecycleEvent)
			if !ok || string(e.Name) != want {
				return
			}
			mu.Lock()
			reached[e.LoaderID] = true
			mu.Unlock()
			select {
			case signal <- struct{}{}:
			default:
			}
		})

		_, loaderID, errorText, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return errors.New(errorText)
		}
		if loaderID == "" {
			// Same-document navigation; there is no new load to wait for.
			return nil
		}

		for {
			mu.Lock()
			done := reached[loaderID]
			mu.Unlock()
			if done {
				return nil
			}
			select {
			case <-signal:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}))
}

func (s *Session) WaitForSelector(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (s *Session) Evaluate(ctx context.Context, expr string, out any) error {
	return s.run(ctx, chromedp.Evaluate(expr, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (s *Session) PrintPDF(ctx context.Context, o render.PrintOptions) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = page.PrintToPDF().
			WithPaperWidth(o.PaperWidth).
			WithPaperHeight(o.PaperHeight).
			WithMarginTop(o.MarginTop).
			WithMarginRight(o.MarginRight).
			WithMarginBottom(o.MarginBottom).
			WithMarginLeft(o.MarginLeft).
			WithPrintBackground(o.PrintBackground).
			WithPreferCSSPageSize(o.PreferCSSPageSize).
			WithDisplayHeaderFooter(o.DisplayHeaderFooter).
			WithScale(o.Scale).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Close shuts the browser down and removes its profile. Only the first call
// does any work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.tabCtx)
		s.teardown()
	})
	return s.closeErr
}

func (s *Session) teardown() {
	s.tabCancel()
	s.allocClose()
	if s.profileDir != "" {
		_ = os.RemoveAll(s.profileDir)
	}
}
