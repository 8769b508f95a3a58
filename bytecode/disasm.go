package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble returns a human-readable listing of the whole unit:
// constant pool, function table, global slots and the instruction
// stream with resolved jump targets.
func (u *Unit) Disassemble() string {
	var sb strings.Builder

	sb.WriteString("; Synapse bytecode\n")
	sb.WriteString(fmt.Sprintf("; Entry: %04d  Root window: %d registers\n", u.Entry, u.MainRegisters))
	sb.WriteString("\n")

	if len(u.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, c := range u.Constants {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, truncateDisplay(c.String())))
		}
		sb.WriteString("\n")
	}

	if len(u.Functions) > 0 {
		sb.WriteString("; Functions:\n")
		for i, fn := range u.Functions {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s/%d entry=%04d regs=%d\n", i, fn.Name, fn.Arity, fn.Entry, fn.Registers))
		}
		sb.WriteString("\n")
	}

	if len(u.Globals) > 0 {
		names := make([]string, 0, len(u.Globals))
		for name := range u.Globals {
			names = append(names, name)
		}
		sort.Slice(names, func(a, b int) bool { return u.Globals[names[a]] < u.Globals[names[b]] })
		sb.WriteString("; Globals:\n")
		for _, name := range names {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", u.Globals[name], name))
		}
		sb.WriteString("\n")
	}

	labels := u.codeLabels()
	sb.WriteString("; Code:\n")
	for i := range u.Code {
		if label, ok := labels[i]; ok {
			sb.WriteString(fmt.Sprintf("; %s\n", label))
		}
		sb.WriteString(fmt.Sprintf("%04d  %s\n", i, u.DisassembleInstruction(i)))
	}

	return sb.String()
}

// DisassembleInstruction returns a human-readable representation of the
// instruction at the given code index.
func (u *Unit) DisassembleInstruction(i int) string {
	if i < 0 || i >= len(u.Code) {
		return "<end of code>"
	}
	ins := u.Code[i]
	info := GetOpcodeInfo(ins.Op)
	if info.Operands == 0 {
		return info.Name
	}

	operands := [3]int32{ins.A, ins.B, ins.C}
	parts := make([]string, 0, info.Operands)
	note := ""
	for k := 0; k < info.Operands; k++ {
		v := operands[k]
		switch info.Kinds[k] {
		case OperandReg:
			parts = append(parts, fmt.Sprintf("r%d", v))
		case OperandConst:
			parts = append(parts, fmt.Sprintf("c%d", v))
			if v >= 0 && int(v) < len(u.Constants) {
				note = truncateDisplay(u.Constants[v].String())
			}
		case OperandOffset:
			parts = append(parts, fmt.Sprintf("%+d", v))
			note = fmt.Sprintf("-> %04d", i+1+int(v))
		case OperandFunc:
			parts = append(parts, fmt.Sprintf("f%d", v))
			if v >= 0 && int(v) < len(u.Functions) {
				note = u.Functions[v].Name
			}
		case OperandGlobal:
			parts = append(parts, fmt.Sprintf("g%d", v))
			if name := u.globalName(int(v)); name != "" {
				note = name
			}
		default:
			parts = append(parts, fmt.Sprintf("%d", v))
		}
	}

	line := info.Name + " " + strings.Join(parts, ", ")
	if note != "" {
		return fmt.Sprintf("%-28s ; %s", line, note)
	}
	return line
}

// codeLabels maps code indices to section labels shown between
// instructions: one per function entry plus one for top-level code.
func (u *Unit) codeLabels() map[int]string {
	labels := make(map[int]string, len(u.Functions)+1)
	for _, fn := range u.Functions {
		params := make([]string, fn.Arity)
		for i := range params {
			params[i] = fmt.Sprintf("r%d", i)
		}
		labels[fn.Entry] = fmt.Sprintf("fn %s(%s):", fn.Name, strings.Join(params, ", "))
	}
	if u.Entry < len(u.Code) {
		labels[u.Entry] = "main:"
	}
	return labels
}

// globalName returns the top-level variable name bound to a root
// window slot, or "" when the slot holds a temporary.
func (u *Unit) globalName(slot int) string {
	for name, s := range u.Globals {
		if s == slot {
			return name
		}
	}
	return ""
}

// truncateDisplay shortens long constant renderings for listing output.
func truncateDisplay(s string) string {
	if len(s) > 40 {
		return s[:37] + "..."
	}
	return s
}
