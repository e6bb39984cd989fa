package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"url2pdf/internal/config"
	"url2pdf/internal/domain"
)

type stubRenderer struct{ policies []string }

func (s *stubRenderer) Render(_ context.Context, p domain.RenderPolicy, _ *url.URL) (*domain.RenderResult, error) {
	s.policies = append(s.policies, p.Name)
	return &domain.RenderResult{PDF: []byte("%PDF-1.4"), Filename: p.DefaultFilename}, nil
}

func TestNew_RoutesAndJSON404(t *testing.T) {
	r := &stubRenderer{}
	app := New(Deps{Config: config.Default(), Renderer: r})

	reqStats, _ := http.NewRequest(http.MethodGet, "/v1/renders/stats", nil)
	respStats, err := app.Test(reqStats)
	if err != nil {
		t.Fatalf("stats request failed: %v", err)
	}
	if respStats.StatusCode != http.StatusOK {
		t.Fatalf("expected /v1/renders/stats 200, got %d", respStats.StatusCode)
	}

	req404, _ := http.NewRequest(http.MethodGet, "/does-not-exist", nil)
	resp404, err := app.Test(req404)
	if err != nil {
		t.Fatalf("404 request failed: %v", err)
	}
	if resp404.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp404.StatusCode)
	}
	var body struct {
		Error struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp404.Body).Decode(&body); err != nil {
		t.Fatalf("expected JSON 404 body: %v", err)
	}
	if body.Error.Code != http.StatusNotFound {
		t.Fatalf("unexpected 404 body: %+v", body)
	}
}

func TestNew_PolicyRoutes(t *testing.T) {
	r := &stubRenderer{}
	app := New(Deps{Config: config.Default(), Renderer: r})

	for path, wantDisposition := range map[string]string{
		"/generate-pdf?target=https://example.com":        `attachment; filename="blog-post.pdf"`,
		"/generate-pdf-simple?target=https://example.com": `attachment; filename="webflow-blog-post.pdf"`,
	} {
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("%s failed: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s expected 200, got %d", path, resp.StatusCode)
		}
		if got := resp.Header.Get("Content-Disposition"); got != wantDisposition {
			t.Fatalf("%s expected %q, got %q", path, wantDisposition, got)
		}
	}

	req, _ := http.NewRequest(http.MethodOptions, "/generate-pdf-simple", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Methods") != "GET, POST, OPTIONS" {
		t.Fatalf("unexpected preflight: %d %v", resp.StatusCode, resp.Header)
	}
	if len(r.policies) != 2 {
		t.Fatalf("expected two renders, got %v", r.policies)
	}
}

func TestNew_HealthEndpoint(t *testing.T) {
	app := New(Deps{Config: config.Default(), Renderer: &stubRenderer{}})
	req, _ := http.NewRequest(http.MethodGet, "/ops/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("health failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestNew_CORSOnErrorResponses(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimiter.UserLimit = 1
	app := New(Deps{Config: cfg, Renderer: &stubRenderer{}})

	send := func(method, path string) *http.Response {
		t.Helper()
		req, _ := http.NewRequest(method, path, nil)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("%s %s failed: %v", method, path, err)
		}
		return resp
	}

	if resp := send(http.MethodGet, "/generate-pdf"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	limited := send(http.MethodGet, "/generate-pdf")
	if limited.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", limited.StatusCode)
	}
	if limited.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS on 429, got %v", limited.Header)
	}

	for i := 0; i < 3; i++ {
		pre := send(http.MethodOptions, "/generate-pdf-simple")
		if pre.StatusCode != http.StatusOK || pre.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Fatalf("preflight %d must bypass the limiter: %d %v", i+1, pre.StatusCode, pre.Header)
		}
	}

	plain := New(Deps{Config: config.Default(), Renderer: &stubRenderer{}})
	req, _ := http.NewRequest(http.MethodGet, "/nope", nil)
	notFound, err := plain.Test(req)
	if err != nil {
		t.Fatalf("404 request failed: %v", err)
	}
	if notFound.StatusCode != http.StatusNotFound || notFound.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS on 404, got %d %v", notFound.StatusCode, notFound.Header)
	}
}

func TestNew_RobustRouteAdvertisesGetOnly(t *testing.T) {
	app := New(Deps{Config: config.Default(), Renderer: &stubRenderer{}})
	req, _ := http.NewRequest(http.MethodOptions, "/generate-pdf", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
		t.Fatalf("expected robust methods, got %q", got)
	}
}
