package parser

// ContentChecker decides whether a candidate content span is acceptable
// before the boundary that ends it is accepted. text is the span from the
// content start up to the candidate boundary; chopWS reports whether trailing
// whitespace will be cut off it afterwards.
//
// The result is tri-state:
//
//	< 0  reject the candidate; the pattern fails
//	  0  accept the candidate
//	> 0  look for the boundary again from that many bytes past the content
//	     start, which must lie beyond the rejected boundary
type ContentChecker interface {
	Check(ct ContentType, text string, chopWS bool) int
}

// AcceptAll accepts every content span.
type AcceptAll struct{}

func (AcceptAll) Check(ContentType, string, bool) int { return 0 }

// CheckerFunc adapts a function to ContentChecker.
type CheckerFunc func(ct ContentType, text string, chopWS bool) int

func (f CheckerFunc) Check(ct ContentType, text string, chopWS bool) int {
	return f(ct, text, chopWS)
}
