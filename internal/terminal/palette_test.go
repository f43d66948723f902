package terminal

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPalette(t *testing.T) {
	p := NewPalette()
	for i, rgb := range defaultColours {
		c, ok := p.Colour(i)
		require.True(t, ok)
		assert.Equal(t, rgb, EncodeRGB8(c[0], c[1], c[2]), "slot %d", i)
	}
	_, ok := p.Colour(PaletteSize)
	assert.False(t, ok)
	_, ok = p.Colour(-1)
	assert.False(t, ok)
}

func TestPaletteEncodeDecode(t *testing.T) {
	p := NewPalette()
	p.SetColour(3, 1, 0, 0.5)
	encoded := p.Encode()
	assert.Len(t, encoded, PaletteSize*6)
	assert.True(t, strings.HasPrefix(encoded, "111111cc4c4c57a64eff0080"))

	q := NewPalette()
	require.True(t, q.Decode(encoded))
	assert.Equal(t, encoded, q.Encode())
}

func TestPaletteDecodeRejectsMalformed(t *testing.T) {
	p := NewPalette()
	before := p.Encode()

	assert.False(t, p.Decode("abc"))
	assert.False(t, p.Decode(strings.Repeat("zz", PaletteSize*3)))
	assert.Equal(t, before, p.Encode())
}

func TestRGB8(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b float64
		want    int
	}{
		{"black", 0, 0, 0, 0x000000},
		{"white", 1, 1, 1, 0xffffff},
		{"clamped", 2, -1, 0.5, 0xff0080},
		{"nan", math.NaN(), 0, 0, 0x000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeRGB8(tt.r, tt.g, tt.b))
		})
	}

	for _, rgb := range defaultColours {
		c := DecodeRGB8(rgb)
		assert.Equal(t, rgb, EncodeRGB8(c[0], c[1], c[2]))
	}
}
