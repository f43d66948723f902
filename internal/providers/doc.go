// Package providers groups the host capabilities scripts can call.
//
// Available Providers:
//   - monitor: display devices, attached to every session as peripherals
//   - mounter: mounts host directories into a session's file tree
//   - fs: file operations over a session's file tree
//
// Every provider exposes a fixed method table through capability.Capability:
//   - Type(): the script-visible kind
//   - MethodNames(): methods in call order
//   - Call(): dispatch by method index
package providers
