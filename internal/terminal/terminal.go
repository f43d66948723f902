package terminal

import "sync"

// Colour and geometry defaults.
const (
	DefaultTextColour       = 0
	DefaultBackgroundColour = 15

	// Sub-cell resolution of the pixel plane.
	PixelColumnsPerCell = 6
	PixelRowsPerCell    = 9

	blankPixel = 15
)

// Terminal is a text and pixel display buffer. It is safe for concurrent use.
type Terminal struct {
	mu sync.Mutex

	width  int
	height int

	cursorX     int
	cursorY     int
	cursorBlink bool
	textColour  int
	bgColour    int
	graphics    bool
	changed     bool

	text   []row
	fg     []row
	bg     []row
	pixels []row

	palette   *Palette
	onChanged func()
}

// New creates a blank terminal. Dimensions below one cell are raised to one.
// onChanged may be nil; when set it runs on every mutation while the
// terminal lock is held.
func New(width, height int, onChanged func()) *Terminal {
	width, height = ClampSize(width, height)
	t := &Terminal{
		width:      width,
		height:     height,
		textColour: DefaultTextColour,
		bgColour:   DefaultBackgroundColour,
		palette:    NewPalette(),
		onChanged:  onChanged,
	}
	t.text = make([]row, height)
	t.fg = make([]row, height)
	t.bg = make([]row, height)
	for y := 0; y < height; y++ {
		t.text[y], t.fg[y], t.bg[y] = t.blankLine()
	}
	t.pixels = t.blankPixels()
	return t
}

// ClampSize raises each dimension to at least one cell.
func ClampSize(width, height int) (int, int) {
	return max(width, 1), max(height, 1)
}

// blankLine builds one text row set in the current cursor colours.
func (t *Terminal) blankLine() (row, row, row) {
	return newRow(t.width, ' '),
		newRow(t.width, colourDigit(t.textColour)),
		newRow(t.width, colourDigit(t.bgColour))
}

func (t *Terminal) blankPixels() []row {
	pixels := make([]row, t.height*PixelRowsPerCell)
	for i := range pixels {
		pixels[i] = newRow(t.width*PixelColumnsPerCell, colourDigit(blankPixel))
	}
	return pixels
}

// markChanged must be called with t.mu held.
func (t *Terminal) markChanged() {
	t.changed = true
	if t.onChanged != nil {
		t.onChanged()
	}
}

// Reset restores the cursor, colours, mode, buffer, pixel plane and palette
// to their defaults.
func (t *Terminal) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.textColour = DefaultTextColour
	t.bgColour = DefaultBackgroundColour
	t.cursorX = 0
	t.cursorY = 0
	t.cursorBlink = false
	t.graphics = false
	t.clearLocked()
	t.palette.Reset()
	t.markChanged()
}

// Size returns the terminal dimensions in cells.
func (t *Terminal) Size() (width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

// Resize changes the dimensions in place. Text content is kept cell-for-cell
// where the old and new regions overlap; new cells take the current cursor
// colours. The pixel plane is regenerated blank on any dimension change.
// Dimensions are clamped as in New.
func (t *Terminal) Resize(width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	width, height = ClampSize(width, height)
	if width == t.width && height == t.height {
		return
	}

	oldWidth, oldHeight := t.width, t.height
	oldText, oldFg, oldBg := t.text, t.fg, t.bg

	t.width, t.height = width, height
	t.text = make([]row, height)
	t.fg = make([]row, height)
	t.bg = make([]row, height)
	for y := 0; y < height; y++ {
		switch {
		case y >= oldHeight:
			t.text[y], t.fg[y], t.bg[y] = t.blankLine()
		case width == oldWidth:
			t.text[y], t.fg[y], t.bg[y] = oldText[y], oldFg[y], oldBg[y]
		default:
			t.text[y] = oldText[y].resized(width, ' ')
			t.fg[y] = oldFg[y].resized(width, colourDigit(t.textColour))
			t.bg[y] = oldBg[y].resized(width, colourDigit(t.bgColour))
		}
	}
	t.pixels = t.blankPixels()
	t.markChanged()
}

// SetCursorPos moves the cursor. Positions outside the grid are allowed.
func (t *Terminal) SetCursorPos(x, y int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cursorX != x || t.cursorY != y {
		t.cursorX, t.cursorY = x, y
		t.markChanged()
	}
}

// CursorPos returns the zero-based cursor position.
func (t *Terminal) CursorPos() (x, y int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursorX, t.cursorY
}

// SetCursorBlink turns cursor blinking on or off.
func (t *Terminal) SetCursorBlink(blink bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cursorBlink != blink {
		t.cursorBlink = blink
		t.markChanged()
	}
}

// CursorBlink reports whether the cursor blinks.
func (t *Terminal) CursorBlink() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursorBlink
}

// SetTextColour sets the foreground index used by Write and blanking.
// The caller validates the range.
func (t *Terminal) SetTextColour(c int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.textColour != c {
		t.textColour = c
		t.markChanged()
	}
}

// TextColour returns the current foreground index.
func (t *Terminal) TextColour() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.textColour
}

// SetBackgroundColour sets the background index used by Write and blanking.
// The caller validates the range.
func (t *Terminal) SetBackgroundColour(c int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bgColour != c {
		t.bgColour = c
		t.markChanged()
	}
}

// BackgroundColour returns the current background index.
func (t *Terminal) BackgroundColour() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bgColour
}

// Write puts text on the cursor row starting at the cursor column, painted
// in the current cursor colours. The cursor is not advanced.
func (t *Terminal) Write(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeLocked([]rune(text)) {
		t.markChanged()
	}
}

// WriteAdvance is Write followed by moving the cursor past the text, as one
// step. The cursor moves even when its row is off-grid.
func (t *Terminal) WriteAdvance(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	runes := []rune(text)
	wrote := t.writeLocked(runes)
	if wrote || len(runes) > 0 {
		t.cursorX += len(runes)
		t.markChanged()
	}
}

func (t *Terminal) writeLocked(runes []rune) bool {
	x, y := t.cursorX, t.cursorY
	if y < 0 || y >= t.height {
		return false
	}
	t.text[y].write(runes, x)
	t.fg[y].fill(colourDigit(t.textColour), x, x+len(runes))
	t.bg[y].fill(colourDigit(t.bgColour), x, x+len(runes))
	return true
}

// Blit is Write with explicit per-cell colours. fg and bg are base-16 digit
// strings; the caller guarantees they match text in length.
func (t *Terminal) Blit(text, fg, bg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.blitLocked([]rune(text), fg, bg) {
		t.markChanged()
	}
}

// BlitAdvance is Blit followed by moving the cursor past the text, as one
// step.
func (t *Terminal) BlitAdvance(text, fg, bg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	runes := []rune(text)
	wrote := t.blitLocked(runes, fg, bg)
	if wrote || len(runes) > 0 {
		t.cursorX += len(runes)
		t.markChanged()
	}
}

func (t *Terminal) blitLocked(runes []rune, fg, bg string) bool {
	x, y := t.cursorX, t.cursorY
	if y < 0 || y >= t.height {
		return false
	}
	t.text[y].write(runes, x)
	t.fg[y].write(normaliseColours([]rune(fg)), x)
	t.bg[y].write(normaliseColours([]rune(bg)), x)
	return true
}

// Scroll moves text rows up by n (down when negative). Exposed rows are
// blanked in the current cursor colours. The pixel plane is not scrolled.
func (t *Terminal) Scroll(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n == 0 {
		return
	}
	text := make([]row, t.height)
	fg := make([]row, t.height)
	bg := make([]row, t.height)
	for y := 0; y < t.height; y++ {
		src := y + n
		if src >= 0 && src < t.height {
			text[y], fg[y], bg[y] = t.text[src], t.fg[src], t.bg[src]
		} else {
			text[y], fg[y], bg[y] = t.blankLine()
		}
	}
	t.text, t.fg, t.bg = text, fg, bg
	t.markChanged()
}

// Clear blanks every text row and the pixel plane.
func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
	t.markChanged()
}

func (t *Terminal) clearLocked() {
	for y := 0; y < t.height; y++ {
		t.text[y].fill(' ', 0, t.width)
		t.fg[y].fill(colourDigit(t.textColour), 0, t.width)
		t.bg[y].fill(colourDigit(t.bgColour), 0, t.width)
	}
	for _, p := range t.pixels {
		p.fill(colourDigit(blankPixel), 0, len(p))
	}
}

// ClearLine blanks the cursor row. No-op when the cursor is off-grid.
func (t *Terminal) ClearLine() {
	t.mu.Lock()
	defer t.mu.Unlock()

	y := t.cursorY
	if y < 0 || y >= t.height {
		return
	}
	t.text[y].fill(' ', 0, t.width)
	t.fg[y].fill(colourDigit(t.textColour), 0, t.width)
	t.bg[y].fill(colourDigit(t.bgColour), 0, t.width)
	t.markChanged()
}

// Line returns the text, foreground and background strings of row y.
func (t *Terminal) Line(y int) (text, fg, bg string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if y < 0 || y >= t.height {
		return "", "", "", false
	}
	return t.text[y].String(), t.fg[y].String(), t.bg[y].String(), true
}

// SetGraphicsMode switches between text and pixel presentation. It does not
// clear the buffer.
func (t *Terminal) SetGraphicsMode(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.graphics = on
	t.markChanged()
}

// SwitchGraphicsMode clears the buffer, sets the mode and homes the cursor
// in one step.
func (t *Terminal) SwitchGraphicsMode(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
	t.graphics = on
	t.cursorX, t.cursorY = 0, 0
	t.markChanged()
}

// GraphicsMode reports whether the pixel plane is presented.
func (t *Terminal) GraphicsMode() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.graphics
}

// SetPixel stores colour index c at sub-cell (x, y). Coordinates outside the
// plane are ignored; bounds are the caller's responsibility.
func (t *Terminal) SetPixel(x, y, c int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if y < 0 || y >= len(t.pixels) || x < 0 || x >= len(t.pixels[y]) {
		return
	}
	t.pixels[y][x] = colourDigit(c)
	t.markChanged()
}

// Pixel returns the colour index at sub-cell (x, y).
func (t *Terminal) Pixel(x, y int) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if y < 0 || y >= len(t.pixels) || x < 0 || x >= len(t.pixels[y]) {
		return 0, false
	}
	c, _ := parseColourDigit(t.pixels[y][x])
	return c, true
}

// PixelLine returns pixel row y as base-16 digits.
func (t *Terminal) PixelLine(y int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if y < 0 || y >= len(t.pixels) {
		return "", false
	}
	return t.pixels[y].String(), true
}

// SetPaletteColour replaces palette slot i and marks the terminal changed.
func (t *Terminal) SetPaletteColour(i int, r, g, b float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.palette.SetColour(i, r, g, b) {
		t.markChanged()
	}
}

// PaletteColour returns palette slot i.
func (t *Terminal) PaletteColour(i int) ([3]float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.palette.Colour(i)
}

// Changed reports whether the terminal was mutated since ClearChanged.
func (t *Terminal) Changed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed
}

// ClearChanged resets the changed flag.
func (t *Terminal) ClearChanged() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changed = false
}
