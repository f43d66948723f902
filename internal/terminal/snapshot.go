package terminal

import "strconv"

// Snapshot keys. Names are stable: snapshots carry no version field and
// older snapshots simply lack some keys.
const (
	KeyCursorX      = "term_cursorX"
	KeyCursorY      = "term_cursorY"
	KeyCursorBlink  = "term_cursorBlink"
	KeyGraphicsMode = "term_graphicsMode"
	KeyTextColour   = "term_textColour"
	KeyBgColour     = "term_bgColour"
	KeyPalette      = "term_palette"

	keyTextPrefix       = "term_text_"
	keyTextColourPrefix = "term_textColour_"
	keyBgColourPrefix   = "term_textBgColour_"
	keyPixelPrefix      = "term_pixelColour_"
)

// Snapshot is the persisted form of a Terminal: a flat key/value map.
type Snapshot map[string]string

// TextKey returns the key holding the characters of row n.
func TextKey(n int) string { return keyTextPrefix + strconv.Itoa(n) }

// TextColourKey returns the key holding the foreground digits of row n.
func TextColourKey(n int) string { return keyTextColourPrefix + strconv.Itoa(n) }

// BackgroundColourKey returns the key holding the background digits of row n.
func BackgroundColourKey(n int) string { return keyBgColourPrefix + strconv.Itoa(n) }

// PixelKey returns the key holding pixel row m (m = row*9 + subrow).
func PixelKey(m int) string { return keyPixelPrefix + strconv.Itoa(m) }

// Int returns the integer stored at key, or def when absent or malformed.
func (s Snapshot) Int(key string, def int) int {
	v, ok := s[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Bool returns the boolean stored at key, or def when absent or malformed.
func (s Snapshot) Bool(key string, def bool) bool {
	v, ok := s[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Serialize captures the full terminal state.
func (t *Terminal) Serialize() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := make(Snapshot, 7+t.height*(3+PixelRowsPerCell))
	snap[KeyCursorX] = strconv.Itoa(t.cursorX)
	snap[KeyCursorY] = strconv.Itoa(t.cursorY)
	snap[KeyCursorBlink] = strconv.FormatBool(t.cursorBlink)
	snap[KeyGraphicsMode] = strconv.FormatBool(t.graphics)
	snap[KeyTextColour] = strconv.Itoa(t.textColour)
	snap[KeyBgColour] = strconv.Itoa(t.bgColour)
	for n := 0; n < t.height; n++ {
		snap[TextKey(n)] = t.text[n].String()
		snap[TextColourKey(n)] = t.fg[n].String()
		snap[BackgroundColourKey(n)] = t.bg[n].String()
	}
	for m, p := range t.pixels {
		snap[PixelKey(m)] = p.String()
	}
	snap[KeyPalette] = t.palette.Encode()
	return snap
}

// Deserialize loads a snapshot into the terminal at its current size.
// Absent or malformed entries fall back to defaults; rows are blanked before
// any stored content is written over them.
func (t *Terminal) Deserialize(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cursorX = snap.Int(KeyCursorX, 0)
	t.cursorY = snap.Int(KeyCursorY, 0)
	t.cursorBlink = snap.Bool(KeyCursorBlink, false)
	t.graphics = snap.Bool(KeyGraphicsMode, false)
	t.textColour = colourOrDefault(snap.Int(KeyTextColour, DefaultTextColour), DefaultTextColour)
	t.bgColour = colourOrDefault(snap.Int(KeyBgColour, DefaultBackgroundColour), DefaultBackgroundColour)

	for n := 0; n < t.height; n++ {
		t.text[n].fill(' ', 0, t.width)
		if v, ok := snap[TextKey(n)]; ok {
			t.text[n].write([]rune(v), 0)
		}
		t.fg[n].fill(colourDigit(t.textColour), 0, t.width)
		if v, ok := snap[TextColourKey(n)]; ok {
			t.fg[n].write(sanitiseColours(v), 0)
		}
		t.bg[n].fill(colourDigit(t.bgColour), 0, t.width)
		if v, ok := snap[BackgroundColourKey(n)]; ok {
			t.bg[n].write(sanitiseColours(v), 0)
		}
	}
	for m, p := range t.pixels {
		p.fill(colourDigit(blankPixel), 0, len(p))
		if v, ok := snap[PixelKey(m)]; ok {
			p.write(sanitiseColours(v), 0)
		}
	}
	if v, ok := snap[KeyPalette]; ok {
		t.palette.Decode(v)
	}
	t.markChanged()
}

func colourOrDefault(c, def int) int {
	if c < 0 || c > 15 {
		return def
	}
	return c
}

// sanitiseColours keeps a stored colour row within the 0-15 range; foreign
// characters become the blank digit 'f'.
func sanitiseColours(s string) []rune {
	runes := []rune(s)
	for i, ch := range runes {
		if v, ok := parseColourDigit(ch); ok {
			runes[i] = colourDigit(v)
		} else {
			runes[i] = colourDigit(blankPixel)
		}
	}
	return runes
}
