package scrape

import (
	"errors"
	"fmt"
	"regexp"
)

// keyTokenPattern matches template tokens: a colon followed by one or
// more lowercase letters or hyphens.
var keyTokenPattern = regexp.MustCompile(`:[a-z][a-z-]*`)

// ErrMissingField is returned when a cache-key template references a
// field absent from the context. Missing fields are an explicit error,
// never a blank substitution.
var ErrMissingField = errors.New("cache template references missing field")

// FormatKey fills the :field tokens in template from the context.
// Duplicate tokens are substituted independently; all non-token text is
// preserved verbatim.
func FormatKey(template string, c Context) (string, error) {
	return FormatKeyFunc(template, func(field string) (any, bool) {
		v, ok := c[field]
		return v, ok
	})
}

// FormatKeyFunc is FormatKey with an arbitrary field lookup function.
func FormatKeyFunc(template string, lookup func(string) (any, bool)) (string, error) {
	var missing error

	out := keyTokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		field := token[1:]

		value, ok := lookup(field)
		if !ok {
			if missing == nil {
				missing = fmt.Errorf("%w: %q in template %q", ErrMissingField, field, template)
			}
			return token
		}
		return fmt.Sprintf("%v", value)
	})

	if missing != nil {
		return "", missing
	}
	return out, nil
}
