package domain

// RenderResult is the single output of a successful render.
type RenderResult struct {
	PDF      []byte
	Filename string
}
