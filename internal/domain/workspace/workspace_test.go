// path: internal/domain/workspace/workspace_test.go
package workspace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SlugDerivedFromName(t *testing.T) {
	w, err := New("Creator Studio #1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "creator-studio-1", w.Slug)
	assert.True(t, w.IsActive)
}

func TestNew_EmptyNameRejected(t *testing.T) {
	_, err := New("   ", time.Now())
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":   "hello-world",
		"  a  b  ":      "a-b",
		"UPPER_case 42": "upper-case-42",
		"---":           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}
