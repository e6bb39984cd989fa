// Package gateway turns a transport-neutral request into a PDF or a JSON
// error response. The HTTP server and the Lambda adapter both feed it.
package gateway

// Event is one incoming request, independent of transport.
type Event struct {
	Method string
	Path   string
	Query  map[string]string
	Body   []byte
}

// Response is what the transport writes back. Binary marks a PDF body.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Binary     bool
}

func (e Event) query(key string) string {
	return e.Query[key]
}
