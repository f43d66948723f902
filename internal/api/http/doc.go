// Package http exposes the host control API: session lifecycle, script
// runs, direct capability calls and monitor inspection.
package http
