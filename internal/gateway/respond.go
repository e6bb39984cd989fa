package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"url2pdf/internal/domain"
)

// CORSHeaders returns the cross-origin headers for a route. POST is only
// advertised when the route reads a JSON body.
func CORSHeaders(acceptBody bool) map[string]string {
	methods := "GET, OPTIONS"
	if acceptBody {
		methods = "GET, POST, OPTIONS"
	}
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Allow-Methods": methods,
	}
}

func preflight(p domain.RenderPolicy) Response {
	return Response{StatusCode: http.StatusOK, Headers: CORSHeaders(p.AcceptBody), Body: []byte{}}
}

// pdfResponse builds the 200 attachment response.
func pdfResponse(res *domain.RenderResult, p domain.RenderPolicy) Response {
	h := CORSHeaders(p.AcceptBody)
	h["Content-Type"] = "application/pdf"
	h["Content-Disposition"] = fmt.Sprintf(`attachment; filename="%s.pdf"`, res.Filename)
	h["Content-Length"] = strconv.Itoa(len(res.PDF))
	h["Cache-Control"] = "no-cache, no-store, must-revalidate"
	h["Pragma"] = "no-cache"
	h["Expires"] = "0"
	return Response{StatusCode: http.StatusOK, Headers: h, Body: res.PDF, Binary: true}
}

// jsonResponse marshals body into a JSON error response. Marshal of a flat
// string map cannot fail.
func jsonResponse(p domain.RenderPolicy, status int, body map[string]string) Response {
	h := CORSHeaders(p.AcceptBody)
	h["Content-Type"] = "application/json"
	b, _ := json.Marshal(body)
	return Response{StatusCode: status, Headers: h, Body: b}
}

// clientError maps input validation failures to 400.
func clientError(err error, p domain.RenderPolicy, raw string) Response {
	switch {
	case errors.Is(err, domain.ErrMissingTarget):
		return jsonResponse(p, http.StatusBadRequest, map[string]string{
			"error":   "Missing target URL",
			"message": "Please provide a target URL parameter",
			"example": p.Example,
		})
	case errors.Is(err, domain.ErrInvalidBody):
		return jsonResponse(p, http.StatusBadRequest, map[string]string{
			"error":   "Invalid request body",
			"message": `The request body must be JSON like {"target": "https://example.com"}`,
			"details": err.Error(),
		})
	default:
		return jsonResponse(p, http.StatusBadRequest, map[string]string{
			"error":    "Invalid URL format",
			"message":  "The target must be a valid http or https URL",
			"provided": raw,
		})
	}
}

// renderError maps a pipeline failure to its JSON envelope.
func renderError(err error, p domain.RenderPolicy, target string) Response {
	var le *domain.LaunchError
	switch {
	case errors.As(err, &le):
		body := map[string]string{
			"error":      "Browser launch failed",
			"message":    "Could not launch browser for PDF generation",
			"details":    "This might be due to missing Chrome installation or permissions",
			"suggestion": "Set browser.chrome_path or CHROME_BIN to a working Chromium binary",
		}
		if le.Primary != nil {
			body["chromiumError"] = le.Primary.Error()
		}
		if le.Fallback != nil {
			body["systemError"] = le.Fallback.Error()
		}
		return jsonResponse(p, http.StatusInternalServerError, body)
	case domain.IsPageError(err):
		return jsonResponse(p, http.StatusInternalServerError, map[string]string{
			"error":      "Failed to process page",
			"message":    "The page could not be loaded or processed",
			"details":    err.Error(),
			"target":     target,
			"suggestion": "This might be due to CORS restrictions or the page being blocked",
		})
	case errors.Is(err, domain.ErrBusy):
		return jsonResponse(p, http.StatusServiceUnavailable, map[string]string{
			"error":   "Service busy",
			"message": "All render slots are in use, retry shortly",
			"details": err.Error(),
		})
	case errors.Is(err, domain.ErrPDFTooLarge):
		return jsonResponse(p, http.StatusRequestEntityTooLarge, map[string]string{
			"error":   "PDF too large",
			"message": "The generated PDF exceeds the configured size limit",
			"details": err.Error(),
			"target":  target,
		})
	default:
		return jsonResponse(p, http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"message": "An unexpected error occurred",
			"details": err.Error(),
		})
	}
}
