package terminal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PaletteSize is the number of palette slots.
const PaletteSize = 16

// defaultColours is the reset table, indexed by palette slot.
// Terminal colour index c is drawn with slot 15-c.
var defaultColours = [PaletteSize]int{
	0x111111, // black
	0xcc4c4c, // red
	0x57a64e, // green
	0x7f664c, // brown
	0x3366cc, // blue
	0xb266e5, // purple
	0x4c99b2, // cyan
	0x999999, // light grey
	0x4c4c4c, // grey
	0xf2b2cc, // pink
	0x7fcc19, // lime
	0xdede6c, // yellow
	0x99b2f2, // light blue
	0xe57fd8, // magenta
	0xf2b233, // orange
	0xf0f0f0, // white
}

// Palette is an indexed RGB colour table. It is owned by a single Terminal
// and is not safe for concurrent use on its own.
type Palette struct {
	colours [PaletteSize][3]float64
}

// NewPalette creates a palette holding the default colours.
func NewPalette() *Palette {
	p := &Palette{}
	p.Reset()
	return p
}

// Reset restores the default colour table.
func (p *Palette) Reset() {
	for i, rgb := range defaultColours {
		p.colours[i] = DecodeRGB8(rgb)
	}
}

// Colour returns the RGB triple in slot i.
func (p *Palette) Colour(i int) ([3]float64, bool) {
	if i < 0 || i >= PaletteSize {
		return [3]float64{}, false
	}
	return p.colours[i], true
}

// SetColour replaces slot i. Out-of-range slots are ignored.
func (p *Palette) SetColour(i int, r, g, b float64) bool {
	if i < 0 || i >= PaletteSize {
		return false
	}
	p.colours[i] = [3]float64{r, g, b}
	return true
}

// Encode renders the palette as 16 concatenated rrggbb hex triples.
func (p *Palette) Encode() string {
	var sb strings.Builder
	sb.Grow(PaletteSize * 6)
	for _, c := range p.colours {
		fmt.Fprintf(&sb, "%06x", EncodeRGB8(c[0], c[1], c[2]))
	}
	return sb.String()
}

// Decode loads a table produced by Encode. A malformed table leaves the
// palette untouched and returns false.
func (p *Palette) Decode(s string) bool {
	if len(s) != PaletteSize*6 {
		return false
	}
	var decoded [PaletteSize][3]float64
	for i := range decoded {
		v, err := strconv.ParseUint(s[i*6:i*6+6], 16, 32)
		if err != nil {
			return false
		}
		decoded[i] = DecodeRGB8(int(v))
	}
	p.colours = decoded
	return true
}

// EncodeRGB8 packs floating point channels into a 24-bit integer.
// Channels are rounded to the nearest step and clamped to [0, 1].
func EncodeRGB8(r, g, b float64) int {
	return channel8(r)<<16 | channel8(g)<<8 | channel8(b)
}

func channel8(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return int(math.Round(v * 255))
}

// DecodeRGB8 unpacks a 24-bit integer into floating point channels.
func DecodeRGB8(rgb int) [3]float64 {
	return [3]float64{
		float64((rgb>>16)&0xff) / 255,
		float64((rgb>>8)&0xff) / 255,
		float64(rgb&0xff) / 255,
	}
}
