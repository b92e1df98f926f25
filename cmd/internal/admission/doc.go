// Package admission gates mutating commands before any I/O happens.
//
// Every command attempt passes through a per-(actor, command) sliding-window
// check with escalating, self-decaying penalties. The decision logic is a pure
// function of (now, policy, state); the surrounding Controller only moves
// state in and out of a StateStore, so the backing store can be swapped
// (in-memory map today, Redis for multi-process deployments) without touching
// the algorithm.
package admission
