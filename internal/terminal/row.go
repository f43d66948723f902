package terminal

const hexDigits = "0123456789abcdef"

// row is one fixed-length line of cells. Text, colour and pixel rows all
// share this representation; colour and pixel rows hold base-16 digits.
type row []rune

func newRow(width int, fill rune) row {
	r := make(row, width)
	r.fill(fill, 0, width)
	return r
}

// write copies text into the row starting at x. Cells outside the row are
// dropped.
func (r row) write(text []rune, x int) {
	for i, ch := range text {
		pos := x + i
		if pos < 0 {
			continue
		}
		if pos >= len(r) {
			return
		}
		r[pos] = ch
	}
}

// fill sets cells in [start, end) to ch, clipped to the row.
func (r row) fill(ch rune, start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(r) {
		end = len(r)
	}
	for i := start; i < end; i++ {
		r[i] = ch
	}
}

// resized returns a new row of the given width holding r's content
// left-aligned, truncated or padded with pad.
func (r row) resized(width int, pad rune) row {
	n := newRow(width, pad)
	copy(n, r)
	return n
}

func (r row) String() string {
	return string(r)
}

// colourDigit encodes a colour index as its base-16 digit.
func colourDigit(c int) rune {
	return rune(hexDigits[c&0xf])
}

// parseColourDigit decodes a base-16 digit, accepting either case.
func parseColourDigit(ch rune) (int, bool) {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch - '0'), true
	case ch >= 'a' && ch <= 'f':
		return int(ch-'a') + 10, true
	case ch >= 'A' && ch <= 'F':
		return int(ch-'A') + 10, true
	}
	return 0, false
}

// IsColourString reports whether every rune in s is a base-16 digit.
func IsColourString(s string) bool {
	for _, ch := range s {
		if _, ok := parseColourDigit(ch); !ok {
			return false
		}
	}
	return true
}

// normaliseColours lowercases base-16 digits so stored rows stay canonical.
func normaliseColours(s []rune) []rune {
	out := make([]rune, len(s))
	for i, ch := range s {
		if v, ok := parseColourDigit(ch); ok {
			out[i] = colourDigit(v)
		} else {
			out[i] = ch
		}
	}
	return out
}
