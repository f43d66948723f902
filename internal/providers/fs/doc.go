// Package fs exposes the sandbox mount table to scripts as the "fs" API.
//
// This package is organized by operation group:
//   - basic: readAll, write, append
//   - directory: list, exists, isDir, makeDir, delete
//   - metadata: isReadOnly, getSize, getFreeSpace, getDrive
//   - search: find (doublestar patterns)
//
// All paths are sandbox paths. Filesystem errors surface to scripts as
// faults: exhausted space or handles are capacity faults, everything else is
// a state fault.
package fs
