// Package handlers adapts the gateway handler to fiber routes.
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"url2pdf/internal/domain"
	"url2pdf/internal/gateway"
	"url2pdf/internal/infra/logging"
	"url2pdf/internal/render"
)

// SlotRenderer runs Next inside a render slot, bounded by RequestTimeout, and
// enforces the PDF size cap.
type SlotRenderer struct {
	Next           gateway.Renderer
	Slots          *render.Slots
	AcquireTimeout time.Duration
	RequestTimeout time.Duration
	MaxPDFBytes    int
}

func (r *SlotRenderer) Render(ctx context.Context, p domain.RenderPolicy, target *url.URL) (*domain.RenderResult, error) {
	acquireCtx := ctx
	if r.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, r.AcquireTimeout)
		defer cancel()
	}
	release, err := r.Slots.Acquire(acquireCtx)
	if err != nil {
		logging.Warn("No render slot available", "target", target.String(), "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrBusy, err)
	}
	// Released on every exit, panics included; only a clean return counts as
	// success.
	ok := false
	defer func() { release(ok) }()

	if r.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.RequestTimeout)
		defer cancel()
	}
	res, err := r.Next.Render(ctx, p, target)
	if err != nil {
		return nil, err
	}
	if r.MaxPDFBytes > 0 && len(res.PDF) > r.MaxPDFBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d", domain.ErrPDFTooLarge, len(res.PDF), r.MaxPDFBytes)
	}
	ok = true
	return res, nil
}

// PDFService serves the render routes and slot stats.
type PDFService struct {
	gw    *gateway.Handler
	slots *render.Slots
}

// NewPDFService wires gw behind fiber. gw's renderer should already be
// slot-bounded; slots is only read for stats.
func NewPDFService(gw *gateway.Handler, slots *render.Slots) *PDFService {
	return &PDFService{gw: gw, slots: slots}
}

// Handle serves one render route under policy p.
func (s *PDFService) Handle(p domain.RenderPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ev := gateway.Event{
			Method: c.Method(),
			Path:   c.Path(),
			Query:  c.Queries(),
			Body:   bytes.Clone(c.Body()),
		}
		resp := s.gw.Serve(c.UserContext(), p, ev)
		return writeResponse(c, resp)
	}
}

// HandleStats reports render slot usage.
func (s *PDFService) HandleStats(c *fiber.Ctx) error {
	return c.JSON(s.slots.Stats())
}

func writeResponse(c *fiber.Ctx, resp gateway.Response) error {
	for k, v := range resp.Headers {
		// fasthttp derives Content-Length from the body.
		if k == fiber.HeaderContentLength {
			continue
		}
		c.Set(k, v)
	}
	return c.Status(resp.StatusCode).Send(resp.Body)
}
