package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatKey(t *testing.T) {
	tests := []struct {
		name     string
		template string
		context  Context
		want     string
	}{
		{
			name:     "single token",
			template: "page-:page",
			context:  Context{"page": 7},
			want:     "page-7",
		},
		{
			name:     "multiple tokens",
			template: ":site/:section/page-:page",
			context:  Context{"site": "news", "section": "sport", "page": "2"},
			want:     "news/sport/page-2",
		},
		{
			name:     "duplicate tokens substituted independently",
			template: ":id-:id",
			context:  Context{"id": "x"},
			want:     "x-x",
		},
		{
			name:     "hyphenated field name",
			template: "item/:item-id",
			context:  Context{"item-id": 42},
			want:     "item/42",
		},
		{
			name:     "no tokens",
			template: "static-key",
			context:  Context{},
			want:     "static-key",
		},
		{
			name:     "non-token text preserved verbatim",
			template: "a : b :page : c",
			context:  Context{"page": 1},
			want:     "a : b 1 : c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatKey(tt.template, tt.context)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatKeyMissingField(t *testing.T) {
	_, err := FormatKey("page-:page", Context{"other": 1})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "page")
}

func TestFormatKeyFunc(t *testing.T) {
	got, err := FormatKeyFunc("v-:version", func(field string) (any, bool) {
		if field == "version" {
			return 3, true
		}
		return nil, false
	})

	require.NoError(t, err)
	assert.Equal(t, "v-3", got)
}
