// Package lua runs scripts on gopher-lua against the capability registries.
//
// Each Run gets a fresh sandboxed state holding the base, table, string and
// math libraries; file loading and module loading are removed. The state
// exposes:
//
//   - peripheral: getNames, isPresent, getType, getMethods, call, wrap
//   - one global table per API capability (mounter, fs), whose functions
//     dispatch by method name
//   - print, writing to the run's output
//
// Capability faults are raised as Lua errors carrying the fault message, so
// scripts can catch them with pcall.
package lua
