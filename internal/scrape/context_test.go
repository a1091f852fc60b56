package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompatible(t *testing.T) {
	tests := []struct {
		name string
		a    Context
		b    Context
		want bool
	}{
		{
			name: "disjoint keys are always compatible",
			a:    Context{"x": 1},
			b:    Context{"y": 2},
			want: true,
		},
		{
			name: "shared key with equal value",
			a:    Context{"x": 1, "y": 2},
			b:    Context{"x": 1, "z": 3},
			want: true,
		},
		{
			name: "shared key with different value",
			a:    Context{"x": 1},
			b:    Context{"x": 2},
			want: false,
		},
		{
			name: "identical contexts",
			a:    Context{"x": 1, "y": "a"},
			b:    Context{"x": 1, "y": "a"},
			want: true,
		},
		{
			name: "empty pattern matches anything",
			a:    Context{},
			b:    Context{"x": 1},
			want: true,
		},
		{
			name: "one mismatch among matches",
			a:    Context{"x": 1, "y": 2},
			b:    Context{"x": 1, "y": 3},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compatible(tt.a, tt.b))
			assert.Equal(t, tt.want, Compatible(tt.b, tt.a), "compatibility is symmetric")
		})
	}
}

func TestMerge(t *testing.T) {
	parent := Context{"site": "news", "page": 1}
	child := Context{"page": 2, "title": "hello"}

	merged := Merge(parent, child)

	assert.Equal(t, Context{"site": "news", "page": 2, "title": "hello"}, merged)
	assert.Equal(t, Context{"site": "news", "page": 1}, parent, "parent unchanged")
	assert.Equal(t, Context{"page": 2, "title": "hello"}, child, "child unchanged")
}

func TestContextWithAndWithout(t *testing.T) {
	c := Context{"a": 1, "b": 2}

	withC := c.With("c", 3)
	assert.Equal(t, Context{"a": 1, "b": 2, "c": 3}, withC)
	assert.NotContains(t, c, "c", "With copies")

	without := withC.Without("a", "b")
	assert.Equal(t, Context{"c": 3}, without)
	assert.Contains(t, withC, "a", "Without copies")
}

func TestContextAccessors(t *testing.T) {
	c := Context{FieldProcessor: "page", FieldURL: "https://x.test/"}
	assert.Equal(t, "page", c.Processor())
	assert.Equal(t, "https://x.test/", c.URL())

	leaf := Context{"data": 1}
	assert.Empty(t, leaf.Processor())
	assert.Empty(t, leaf.URL())

	// Non-string values in reserved fields are not stage identifiers.
	odd := Context{FieldProcessor: 7}
	assert.Empty(t, odd.Processor())
}
