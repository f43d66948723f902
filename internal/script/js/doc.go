// Package js runs scripts on goja against the capability registries.
//
// The surface mirrors the Lua binding: a peripheral object (getNames,
// isPresent, getType, getMethods, call, wrap), one object per API capability,
// print and console.log. JavaScript has no multiple returns, so calls with
// several results return an array. Faults are thrown as errors whose message
// is the fault message and can be caught with try/catch.
package js
