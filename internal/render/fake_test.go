package render

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"url2pdf/internal/domain"
)

// fakeBrowser scripts page behavior for pipeline tests.
type fakeBrowser struct {
	mu sync.Mutex

	heights    []int64 // successive scrollHeight reads; the last value repeats
	heightRead int
	textLength int
	title      string
	titleErr   error
	pdf        []byte

	navigateErr error
	printErr    error
	markerErr   error
	evalErr     map[string]error

	userAgent string
	blocked   []string
	navWait   domain.WaitMode
	scripts   []string
	closes    int
}

func (f *fakeBrowser) SetUserAgent(_ context.Context, ua string) error {
	f.userAgent = ua
	return nil
}

func (f *fakeBrowser) BlockResources(_ context.Context, types []string) error {
	f.blocked = types
	return nil
}

func (f *fakeBrowser) Navigate(ctx context.Context, _ string, wait domain.WaitMode) error {
	f.navWait = wait
	if f.navigateErr != nil {
		return f.navigateErr
	}
	return ctx.Err()
}

func (f *fakeBrowser) WaitForSelector(context.Context, string) error { return f.markerErr }

func (f *fakeBrowser) Evaluate(_ context.Context, expr string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, expr)
	if err := f.evalErr[expr]; err != nil {
		return err
	}
	var v any
	switch expr {
	case scrollHeightJS:
		i := f.heightRead
		if i >= len(f.heights) {
			i = len(f.heights) - 1
		}
		f.heightRead++
		v = f.heights[i]
	case textLengthJS:
		v = f.textLength
	default:
		v = true
	}
	if out == nil {
		return nil
	}
	raw, _ := json.Marshal(v)
	return json.Unmarshal(raw, out)
}

func (f *fakeBrowser) Title(context.Context) (string, error) { return f.title, f.titleErr }

func (f *fakeBrowser) PrintPDF(ctx context.Context, _ PrintOptions) ([]byte, error) {
	if f.printErr != nil {
		return nil, f.printErr
	}
	return f.pdf, ctx.Err()
}

func (f *fakeBrowser) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeBrowser) count(expr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.scripts {
		if s == expr {
			n++
		}
	}
	return n
}

type fakeProvisioner struct {
	browser   *fakeBrowser
	err       error
	calls     int
	fallbacks []bool
}

func (p *fakeProvisioner) Provision(_ context.Context, fallback bool) (Browser, error) {
	p.calls++
	p.fallbacks = append(p.fallbacks, fallback)
	if p.err != nil {
		return nil, p.err
	}
	return p.browser, nil
}

// recordSleep collects requested pauses without waiting.
type recordSleep struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (r *recordSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.pauses = append(r.pauses, d)
	r.mu.Unlock()
	return ctx.Err()
}

var errBoom = errors.New("boom")

func testPDF() []byte { return []byte("%PDF-1.4\n%fake\n%%EOF") }
