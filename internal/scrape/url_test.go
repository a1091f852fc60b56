package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	const base = "https://foo.pl/bar/baz"

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{name: "relative", ref: "foo", want: "https://foo.pl/bar/foo"},
		{name: "root relative", ref: "/baz/foo", want: "https://foo.pl/baz/foo"},
		{name: "protocol relative", ref: "//bar.uk/baz/foo", want: "https://bar.uk/baz/foo"},
		{name: "absolute unchanged", ref: "http://bar.uk/baz/foo", want: "http://bar.uk/baz/foo"},
		{name: "query only", ref: "?page=2", want: "https://foo.pl/bar/baz?page=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL(base, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveURLInvalid(t *testing.T) {
	_, err := ResolveURL("https://foo.pl/", "http://bad url with spaces\x7f")
	assert.Error(t, err)
}
