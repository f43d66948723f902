package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"a/b", "a/b"},
		{"/a//b/", "a/b"},
		{"a/./b/../c", "a/c"},
		{"a\\b", "a/b"},
		{"a/..", ""},
	}
	for _, tt := range tests {
		got, err := Canonical(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"..", "/../etc", "a/../../b", "..\\x"} {
		_, err := Canonical(bad)
		assert.ErrorIs(t, err, ErrAccessDenied, bad)
	}
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "a", Join("", "a"))
	assert.Equal(t, "a/b", Join("a", "b"))

	dir, name := parent("a/b/c")
	assert.Equal(t, "a/b", dir)
	assert.Equal(t, "c", name)
	dir, name = parent("a")
	assert.Equal(t, "", dir)
	assert.Equal(t, "a", name)

	assert.True(t, under("disk/x", "disk"))
	assert.True(t, under("disk", "disk"))
	assert.False(t, under("disk2", "disk"))
	assert.True(t, under("anything", ""))

	assert.Equal(t, "x/y", relativeTo("disk/x/y", "disk"))
	assert.Equal(t, "", relativeTo("disk", "disk"))
}
