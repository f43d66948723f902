// Package server assembles the running host.
//
// New builds, in order: prometheus metrics on a private registry, the render
// scheduler, the peripheral and API capability registries (one monitor per
// configured name, plus the mounter and fs APIs), the snapshot store, the
// session manager, and the gin router with its middleware stack.
//
// Lifecycle:
//  1. New(cfg, logger)
//  2. RestoreSnapshots
//  3. Run(ctx) until a signal cancels ctx
//  4. SaveSnapshots
//  5. Close
package server
