package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"url2pdf/internal/domain"
)

type fakeRenderer struct {
	result  *domain.RenderResult
	err     error
	calls   int
	policy  domain.RenderPolicy
	targets []string
}

func (f *fakeRenderer) Render(_ context.Context, p domain.RenderPolicy, target *url.URL) (*domain.RenderResult, error) {
	f.calls++
	f.policy = p
	f.targets = append(f.targets, target.String())
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestHandler(r Renderer) *Handler {
	robust, simple := domain.RobustPolicy(), domain.SimplePolicy()
	return NewHandler(r, robust, simple)
}

func decodeJSON(t *testing.T, resp Response) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Body, &body))
	return body
}

const (
	robustMethods = "GET, OPTIONS"
	simpleMethods = "GET, POST, OPTIONS"
)

func assertCORS(t *testing.T, resp Response, methods string) {
	t.Helper()
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.Equal(t, "Content-Type", resp.Headers["Access-Control-Allow-Headers"])
	assert.Equal(t, methods, resp.Headers["Access-Control-Allow-Methods"])
}

func TestServe_OptionsShortCircuits(t *testing.T) {
	r := &fakeRenderer{}
	h := newTestHandler(r)

	for path, methods := range map[string]string{
		"/generate-pdf":        robustMethods,
		"/generate-pdf-simple": simpleMethods,
	} {
		resp := h.Handle(context.Background(), Event{Method: http.MethodOptions, Path: path})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Body)
		assertCORS(t, resp, methods)
	}
	assert.Zero(t, r.calls)
}

func TestServe_MissingTarget(t *testing.T) {
	r := &fakeRenderer{}
	h := newTestHandler(r)

	resp := h.Handle(context.Background(), Event{Method: http.MethodGet, Path: "/generate-pdf"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assertCORS(t, resp, robustMethods)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	body := decodeJSON(t, resp)
	assert.Equal(t, "Missing target URL", body["error"])
	assert.Equal(t, domain.RobustPolicy().Example, body["example"])
	assert.Zero(t, r.calls)
}

func TestServe_InvalidTarget(t *testing.T) {
	r := &fakeRenderer{}
	h := newTestHandler(r)

	for _, raw := range []string{"not a url", "ftp://example.com/x", "/relative/path", "file:///etc/passwd"} {
		resp := h.Handle(context.Background(), Event{
			Method: http.MethodGet,
			Path:   "/generate-pdf-simple",
			Query:  map[string]string{"target": raw},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, raw)
		assertCORS(t, resp, simpleMethods)
		body := decodeJSON(t, resp)
		assert.Equal(t, "Invalid URL format", body["error"])
		assert.Equal(t, raw, body["provided"])
	}
	assert.Zero(t, r.calls)
}

func TestServe_PostBody(t *testing.T) {
	r := &fakeRenderer{result: &domain.RenderResult{PDF: []byte("%PDF-1.4"), Filename: "my-great-post"}}
	h := newTestHandler(r)

	resp := h.Handle(context.Background(), Event{
		Method: http.MethodPost,
		Path:   "/.netlify/functions/generate-pdf-simple",
		Body:   []byte(`{"target":"https://example.com/post"}`),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"https://example.com/post"}, r.targets)
	assert.Equal(t, "simple", r.policy.Name)

	resp = h.Handle(context.Background(), Event{
		Method: http.MethodPost,
		Path:   "/generate-pdf-simple",
		Body:   []byte(`{"target":`),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", decodeJSON(t, resp)["error"])

	resp = h.Handle(context.Background(), Event{Method: http.MethodPost, Path: "/generate-pdf-simple"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing target URL", decodeJSON(t, resp)["error"])
	assert.Equal(t, 1, r.calls)
}

func TestServe_RobustIgnoresBody(t *testing.T) {
	r := &fakeRenderer{result: &domain.RenderResult{PDF: []byte("%PDF"), Filename: "x"}}
	h := newTestHandler(r)

	resp := h.Handle(context.Background(), Event{
		Method: http.MethodPost,
		Path:   "/generate-pdf",
		Query:  map[string]string{"target": "https://example.com/q"},
		Body:   []byte(`{"target":"https://example.com/body"}`),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"https://example.com/q"}, r.targets)
	assert.Equal(t, "robust", r.policy.Name)
}

func TestServe_Success(t *testing.T) {
	pdf := []byte("%PDF-1.7 test document")
	r := &fakeRenderer{result: &domain.RenderResult{PDF: pdf, Filename: "my-great-post"}}
	h := newTestHandler(r)

	resp := h.Handle(context.Background(), Event{
		Method: http.MethodGet,
		Path:   "/generate-pdf",
		Query:  map[string]string{"target": "https://example.com"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.Binary)
	assert.Equal(t, pdf, resp.Body)
	assertCORS(t, resp, robustMethods)
	assert.Equal(t, "application/pdf", resp.Headers["Content-Type"])
	assert.Equal(t, `attachment; filename="my-great-post.pdf"`, resp.Headers["Content-Disposition"])
	assert.Equal(t, "22", resp.Headers["Content-Length"])
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Headers["Cache-Control"])
	assert.Equal(t, "no-cache", resp.Headers["Pragma"])
	assert.Equal(t, "0", resp.Headers["Expires"])
}

func TestServe_LaunchFailure(t *testing.T) {
	r := &fakeRenderer{err: &domain.LaunchError{
		Primary:  errors.New("bundled exploded"),
		Fallback: errors.New("no system chrome"),
	}}
	h := newTestHandler(r)

	resp := h.Handle(context.Background(), Event{
		Method: http.MethodGet,
		Path:   "/generate-pdf-simple",
		Query:  map[string]string{"target": "https://example.com"},
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Equal(t, "Browser launch failed", body["error"])
	assert.Equal(t, "bundled exploded", body["chromiumError"])
	assert.Equal(t, "no system chrome", body["systemError"])
	assert.NotEmpty(t, body["suggestion"])

	r.err = &domain.LaunchError{Primary: errors.New("only one")}
	resp = h.Handle(context.Background(), Event{
		Method: http.MethodGet,
		Path:   "/generate-pdf",
		Query:  map[string]string{"target": "https://example.com"},
	})
	body = decodeJSON(t, resp)
	assert.Equal(t, "only one", body["chromiumError"])
	_, hasSystem := body["systemError"]
	assert.False(t, hasSystem)
}

func TestServe_RenderErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		label  string
	}{
		{"empty page", domain.ErrEmptyPage, http.StatusInternalServerError, "Failed to process page"},
		{"navigation", errors.Join(domain.ErrNavigation, errors.New("net::ERR_NAME_NOT_RESOLVED")), http.StatusInternalServerError, "Failed to process page"},
		{"capture", domain.ErrCapture, http.StatusInternalServerError, "Failed to process page"},
		{"busy", domain.ErrBusy, http.StatusServiceUnavailable, "Service busy"},
		{"too large", domain.ErrPDFTooLarge, http.StatusRequestEntityTooLarge, "PDF too large"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(&fakeRenderer{err: tc.err})
			resp := h.Handle(context.Background(), Event{
				Method: http.MethodGet,
				Path:   "/generate-pdf",
				Query:  map[string]string{"target": "https://example.com/a"},
			})
			assert.Equal(t, tc.status, resp.StatusCode)
			assertCORS(t, resp, robustMethods)
			body := decodeJSON(t, resp)
			assert.Equal(t, tc.label, body["error"])
			assert.NotEmpty(t, body["details"])
			assert.False(t, resp.Binary)
		})
	}
}

func TestPolicyFor(t *testing.T) {
	h := newTestHandler(&fakeRenderer{})
	assert.Equal(t, "simple", h.PolicyFor("/generate-pdf-simple").Name)
	assert.Equal(t, "simple", h.PolicyFor("/.netlify/functions/generate-pdf-simple/").Name)
	assert.Equal(t, "robust", h.PolicyFor("/generate-pdf").Name)
	assert.Equal(t, "robust", h.PolicyFor("").Name)
}
