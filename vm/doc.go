// Package vm implements the Synapse virtual machine.
//
// This package contains:
//   - Tagged value representation with array reference semantics
//   - Register-windowed call frames over one growing backing slice
//   - Single-step bytecode interpreter with fatal, fail-fast errors
//   - Output sinks for routing program prints
//
// The machine executes a frozen bytecode.Unit. Each call frame sees a
// bounded register window; windows stack end to end in one backing
// slice that grows as calls nest, so the configured capacity bounds
// each frame rather than the whole program.
package vm
