// Package terminal implements the display state machine shared between a
// script thread and the host renderer.
//
// A Terminal holds a text grid (characters plus per-cell foreground and
// background colour indices), a pixel plane at sub-cell resolution, a
// 16-slot palette, and cursor state. Every operation runs under a single
// mutex per Terminal so a reader taking a snapshot never sees a row whose
// text and colours disagree.
//
// Layout:
//   - Text rows: height rows of width cells
//   - Colour rows: base-16 digits ('0'-'f'), one per cell
//   - Pixel plane: height*9 rows of width*6 base-16 digits
//
// Change Notification:
//   - Every mutation sets the changed flag and runs the callback given to New
//   - The callback runs while the Terminal lock is held and must not call
//     back into the Terminal; it should only schedule work (e.g. a redraw)
//
// Persistence:
//   - Serialize produces a flat key/value Snapshot keyed by stable names
//   - Deserialize tolerates missing keys so older snapshots still load
//
// Example Usage:
//
//	term := terminal.New(51, 19, scheduler.Notify)
//	term.SetCursorPos(0, 0)
//	term.Write("hello")
//	snap := term.Serialize()
package terminal
