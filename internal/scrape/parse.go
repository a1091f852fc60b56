package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML is the default ParseFn: it parses the body into a goquery
// document. Stage transforms receive the *goquery.Document as their
// opaque document value.
func ParseHTML(body string, _ Context) (any, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ParseString is a ParseFn that passes the raw body through unchanged,
// for stages that consume non-HTML resources.
func ParseString(body string, _ Context) (any, error) {
	return body, nil
}

// Document extracts the goquery document from a stage's opaque document
// value. It is a convenience for transforms built on the default
// ParseFn.
func Document(doc any) (*goquery.Document, error) {
	d, ok := doc.(*goquery.Document)
	if !ok {
		return nil, fmt.Errorf("document is %T, not *goquery.Document", doc)
	}
	return d, nil
}
