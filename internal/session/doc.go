// Package session manages script sessions, the computers of the capability
// contract.
//
// Components:
//   - Session: a computer with its own event queue, mount table and mount
//     registry. Scripts run one at a time per session.
//   - Manager: creates sessions, attaches every registered peripheral to
//     them, and tears them down.
//
// Example Usage:
//
//	mgr := session.NewManager(peripherals, apis, session.Options{Timeout: 10 * time.Second})
//	s, _ := mgr.Create("shell")
//	res, err := s.Run(ctx, "lua", `return peripheral.getNames()`)
//	mgr.CloseAll()
package session
