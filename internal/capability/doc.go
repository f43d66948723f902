// Package capability defines the contract between sandboxed scripts and the
// host objects they are allowed to touch.
//
// A capability exposes an ordered list of method names. Scripts call a
// method by its index in that list, passing dynamically typed arguments and
// receiving a list of results or a fault.
//
// Components:
//   - Capability: Interface every host object implements
//   - Table: Ordered method table with index dispatch
//   - Arguments: Coercion of script values into Go types
//   - Fault: Script-facing error with a kind
//   - Registry: Named capabilities shared by every session
//
// Fault Kinds:
//   - Argument: wrong type, count or range
//   - State: operation not valid in the current state
//   - Capacity: resource exhausted, message passed through unchanged
//
// Example Usage:
//
//	registry := capability.NewRegistry(capability.WithLogger(log))
//	registry.Register("left", monitor.NewPeripheral(device))
//	results, err := registry.Invoke(ctx, computer, "left", "getSize", nil)
package capability
