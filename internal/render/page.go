package render

import "strings"

// Injection places HTML in front of the first occurrence of Marker in a
// page body. A missing marker is not an error: the page renders without
// the fragment.
type Injection struct {
	Marker string
	HTML   string
}

// Apply returns body with the fragment inserted, and whether it was.
func (inj *Injection) Apply(body string) (string, bool) {
	if inj == nil || inj.Marker == "" || inj.HTML == "" {
		return body, false
	}
	i := strings.Index(body, inj.Marker)
	if i < 0 {
		return body, false
	}
	return body[:i] + inj.HTML + body[i:], true
}

// Assemble concatenates head, body (after the optional injection), footer
// and foot.
func Assemble(t Template, body, footer string, inj *Injection) string {
	body, _ = inj.Apply(body)

	var b strings.Builder
	b.Grow(len(t.Head) + len(body) + len(footer) + len(t.Foot))
	b.WriteString(t.Head)
	b.WriteString(body)
	b.WriteString(footer)
	b.WriteString(t.Foot)
	return b.String()
}
