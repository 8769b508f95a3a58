// Package bytecode defines the compiled form of Synapse programs: a
// register-based instruction set, the unit container that holds a
// compiled program, a disassembler and the artifact serialization
// format.
//
// The format is designed for:
//   - Fixed-width instructions (opcode plus up to three operands)
//   - Fast decoding (no variable-length operand streams to parse)
//   - Deterministic serialization (canonical CBOR, stable constant
//     pool ordering)
//
// # Architecture Overview
//
//   - Opcodes: ~30 register instructions covering arithmetic,
//     comparison, logic, control flow, data movement and output,
//     grouped into hex ranges by family. An OpcodeInfo table carries
//     each opcode's mnemonic and operand kinds; the disassembler and
//     the VM's operand validation are driven by it.
//
//   - Unit: a complete compiled program. One deduplicated constant
//     pool, one flat instruction stream, a function table and the
//     top-level variable slot map. Function bodies occupy the front of
//     the stream and top-level code starts at Entry. The pool is
//     append-only while the compiler runs and frozen before execution.
//
//   - Artifact: the on-disk envelope written by "synapse build". Four
//     magic bytes ("SYNB") followed by a canonical CBOR payload
//     carrying the format version, a fresh build id, the SHA-256 of
//     the source text and the unit itself.
//
// # Jumps
//
// Jump offsets are signed and relative to the instruction after the
// jump, so an offset of 0 is a no-op and -1 loops forever. The
// compiler emits placeholder offsets and patches them once targets are
// known; Unit.Validate rejects any jump that escapes the code section,
// which makes an unpatched placeholder a load-time error instead of a
// silent fall-through.
//
// # Loading
//
// UnmarshalUnit checks the magic and version, validates the decoded
// unit and freezes its constant pool, so a corrupted or truncated
// artifact is rejected at load time with a descriptive error rather
// than misbehaving mid-run.
package bytecode
