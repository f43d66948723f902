// Package vfs is the boundary between sandboxed scripts and the host file
// tree.
//
// Sandbox paths are slash separated and relative to the sandbox root. They
// are canonicalised before use and can never climb above the root of the
// mount they resolve to.
//
// Components:
//   - Mount / WritableMount: A file tree a script may see
//   - FileMount: Host directory with a byte budget
//   - ReadOnly: Wrapper hiding every write operation
//   - FileSystem: Mount table with longest-prefix resolution
//   - Opener: Turns host paths into mounts
//
// Space Accounting:
//   - Every file or directory costs at least 500 bytes
//   - Existing content is measured once when the mount is opened
//   - Writes beyond the budget fail with ErrOutOfSpace
package vfs
