package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"url2pdf/internal/domain"
	"url2pdf/internal/infra/logging"
)

// Renderer produces a PDF for one validated target.
type Renderer interface {
	Render(ctx context.Context, p domain.RenderPolicy, target *url.URL) (*domain.RenderResult, error)
}

// SimpleSuffix is the path suffix that selects the simple policy.
const SimpleSuffix = "generate-pdf-simple"

// Handler validates requests, runs the renderer and assembles responses.
type Handler struct {
	Renderer Renderer
	Robust   domain.RenderPolicy
	Simple   domain.RenderPolicy
}

// NewHandler returns a Handler serving both policies through r.
func NewHandler(r Renderer, robust, simple domain.RenderPolicy) *Handler {
	return &Handler{Renderer: r, Robust: robust, Simple: simple}
}

// PolicyFor routes by path suffix: paths ending in generate-pdf-simple use
// the simple policy, everything else the robust one.
func (h *Handler) PolicyFor(path string) domain.RenderPolicy {
	if strings.HasSuffix(strings.TrimRight(path, "/"), SimpleSuffix) {
		return h.Simple
	}
	return h.Robust
}

// Handle serves ev with the policy chosen from its path.
func (h *Handler) Handle(ctx context.Context, ev Event) Response {
	return h.Serve(ctx, h.PolicyFor(ev.Path), ev)
}

// Serve serves ev under policy p. OPTIONS and invalid input return before any
// browser work.
func (h *Handler) Serve(ctx context.Context, p domain.RenderPolicy, ev Event) Response {
	if strings.EqualFold(ev.Method, http.MethodOptions) {
		return preflight(p)
	}

	raw, err := extractTarget(p, ev)
	if err != nil {
		logging.Warn("Rejected request body", "policy", p.Name, "error", err)
		return clientError(err, p, raw)
	}
	target, err := domain.ParseTarget(raw)
	if err != nil {
		logging.Warn("Rejected target", "policy", p.Name, "target", raw, "error", err)
		return clientError(err, p, raw)
	}

	res, err := h.Renderer.Render(ctx, p, target)
	if err != nil {
		return renderError(err, p, target.String())
	}
	return pdfResponse(res, p)
}

// extractTarget reads the target from the JSON body for POST when the policy
// accepts one, and from the query string otherwise.
func extractTarget(p domain.RenderPolicy, ev Event) (string, error) {
	if p.AcceptBody && strings.EqualFold(ev.Method, http.MethodPost) {
		if len(strings.TrimSpace(string(ev.Body))) == 0 {
			return "", nil
		}
		var body struct {
			Target string `json:"target"`
		}
		if err := json.Unmarshal(ev.Body, &body); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
		}
		return body.Target, nil
	}
	return ev.query("target"), nil
}
