// Package monitor implements external display devices and the "monitor"
// capability scripts use to draw on them.
//
// A Monitor owns its Terminal. The Peripheral borrows it for the duration of
// each call and re-resolves it every time, so a device whose terminal has
// been detached faults instead of crashing.
//
// Coordinates are one-based at the script boundary and zero-based inside the
// Terminal. Pixel coordinates are zero-based sub-cell positions in both.
//
// Events:
//   - monitor_resize(name): the device changed size
//   - monitor_touch(name, x, y): the screen was touched at a cell
package monitor
