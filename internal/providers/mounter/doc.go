// Package mounter lets scripts attach host directories to their sandbox.
//
// Each session owns a Registry. A mount named "disk" appears inside the
// sandbox at "/disk" and is backed by a capacity-bounded view of the host
// directory. When the session ends, Shutdown removes everything the
// registry created.
//
// Script Methods (in index order):
//   - mount(name, hostPath [, writable=true])
//   - unmount(name)
//   - list() -> {name = hostPath}
//   - isReadOnly(name) -> boolean | nil
package mounter
