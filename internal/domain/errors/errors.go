package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid matches any ValidationError via errors.Is.
var ErrInvalid = errors.New("invalid")

// FieldPath joins config keys and list indexes into the form used in
// messages: FieldPath("collections", 1, "name") is "collections[1].name".
func FieldPath(parts ...any) string {
	var b strings.Builder
	for _, p := range parts {
		switch v := p.(type) {
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		default:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

// FieldError is one rejected config value.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationError collects every problem found in one config file so they
// can all be fixed in a single edit. Source names the file, if any.
type ValidationError struct {
	Source string
	Items  []FieldError
}

func (e ValidationError) Error() string {
	head := "invalid config"
	if e.Source != "" {
		head = e.Source + ": " + head
	}
	if len(e.Items) == 0 {
		return head
	}

	var b strings.Builder
	b.WriteString(head)
	b.WriteString(":\n")
	for _, item := range e.Items {
		fmt.Fprintf(&b, " - %s\n", item.Error())
	}
	return b.String()
}

func (e *ValidationError) Add(field, msg string) {
	e.Items = append(e.Items, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) Addf(field, format string, args ...any) {
	e.Add(field, fmt.Sprintf(format, args...))
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// Err returns e when it holds any item and nil otherwise, so a validator
// can end with "return ve.Err()".
func (e ValidationError) Err() error {
	if len(e.Items) == 0 {
		return nil
	}
	return e
}

// Fields lists the offending field names in the order they were added.
func (e ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		out = append(out, item.Field)
	}
	return out
}
