// Package render drives one headless browser session from navigation to a
// printed PDF.
package render

import (
	"context"

	"url2pdf/internal/domain"
)

// Browser is one launched browser process with a single open tab.
type Browser interface {
	// SetUserAgent overrides the tab's user agent.
	SetUserAgent(ctx context.Context, ua string) error
	// BlockResources aborts requests whose resource type is listed. An empty
	// list leaves interception off.
	BlockResources(ctx context.Context, types []string) error
	// Navigate loads url and returns once the network reaches the wait mode.
	Navigate(ctx context.Context, url string, wait domain.WaitMode) error
	// WaitForSelector waits until selector matches a node in the DOM.
	WaitForSelector(ctx context.Context, selector string) error
	// Evaluate runs expr in the page, awaiting a returned promise, and decodes
	// the result into out when out is non-nil.
	Evaluate(ctx context.Context, expr string, out any) error
	Title(ctx context.Context) (string, error)
	PrintPDF(ctx context.Context, opts PrintOptions) ([]byte, error)
	// Close terminates the browser process. Safe to call more than once.
	Close() error
}

// Provisioner launches browsers. With fallback set, a failed primary launch
// is retried once against the system-installed browser.
type Provisioner interface {
	Provision(ctx context.Context, fallback bool) (Browser, error)
}

// PrintOptions are the print-to-PDF parameters. Lengths are in inches.
type PrintOptions struct {
	PaperWidth          float64
	PaperHeight         float64
	MarginTop           float64
	MarginRight         float64
	MarginBottom        float64
	MarginLeft          float64
	PrintBackground     bool
	PreferCSSPageSize   bool
	DisplayHeaderFooter bool
	Scale               float64
}

const mmPerInch = 25.4

// A4Options is A4 with 10mm margins, backgrounds on and no header or footer.
func A4Options() PrintOptions {
	margin := 10 / mmPerInch
	return PrintOptions{
		PaperWidth:        8.27,
		PaperHeight:       11.69,
		MarginTop:         margin,
		MarginRight:       margin,
		MarginBottom:      margin,
		MarginLeft:        margin,
		PrintBackground:   true,
		PreferCSSPageSize: true,
		Scale:             1.0,
	}
}
