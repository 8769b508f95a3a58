package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/BrianSMitchell/Synapse-sub000/compiler"
	"github.com/BrianSMitchell/Synapse-sub000/vm"
)

// The REPL keeps the whole session as one growing program. Each entry
// is appended, the program is recompiled and rerun against a buffer
// sink, and only the output the new entry produced is shown. Entries
// that fail to compile or blow up at runtime are rolled back, so the
// session stays healthy.
type repl struct {
	cfg     vm.Config
	session string
	prevOut string
}

func runREPL(cfg vm.Config) {
	fmt.Println("Synapse REPL (type 'exit' to quit, ':help' for commands)")
	r := &repl{cfg: cfg}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var pending string

	for {
		if pending == "" {
			fmt.Print(">> ")
		} else {
			fmt.Print(".. ")
		}
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()

		if pending == "" {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if trimmed == "exit" || trimmed == "quit" {
				return
			}
			if strings.HasPrefix(trimmed, ":") {
				if r.command(trimmed) {
					return
				}
				continue
			}
			pending = line
		} else {
			pending += "\n" + line
		}

		if needsMore(pending) {
			continue
		}
		r.eval(pending)
		pending = ""
	}
}

// command handles a ':' meta-command. It reports whether the REPL
// should exit.
func (r *repl) command(cmd string) bool {
	switch cmd {
	case ":help":
		fmt.Println("Commands:")
		fmt.Println("  :help     Show this help")
		fmt.Println("  :disasm   Disassemble the session program")
		fmt.Println("  :reset    Forget everything defined so far")
		fmt.Println("  :quit     Exit the REPL (same as 'exit')")
	case ":disasm":
		if strings.TrimSpace(r.session) == "" {
			fmt.Println("(empty session)")
			return false
		}
		unit, err := compiler.CompileSource(r.session)
		if err != nil {
			fmt.Println(err)
			return false
		}
		fmt.Print(unit.Disassemble())
	case ":reset":
		r.session = ""
		r.prevOut = ""
		fmt.Println("Session reset")
	case ":quit":
		return true
	default:
		fmt.Printf("Unknown command %s (try :help)\n", cmd)
	}
	return false
}

// eval appends one entry to the session, reruns the program and prints
// what the entry added. A bare expression is wrapped in print so its
// value shows up.
func (r *repl) eval(input string) {
	entry := input
	if isExpression(input) {
		entry = "print (" + input + ")"
	}

	candidate := r.session
	if candidate != "" {
		candidate += "\n"
	}
	candidate += entry

	unit, err := compiler.CompileSource(candidate)
	if err != nil {
		fmt.Println(err)
		return
	}

	cfg := r.cfg
	sink := &vm.BufferSink{}
	cfg.Sink = sink
	result, err := vm.Execute(unit, cfg)
	if err != nil {
		fmt.Println(err)
		return
	}

	out := sink.String()
	if strings.HasPrefix(out, r.prevOut) {
		fmt.Print(out[len(r.prevOut):])
	} else {
		fmt.Print(out)
	}

	// A top-level return ends the program, so keeping it around would
	// shadow every later entry. Show the result and drop it.
	if result.Kind != vm.KindNone {
		fmt.Printf("=> %s\n", result.String())
		return
	}
	r.session = candidate
	r.prevOut = out
}

// isExpression reports whether the input parses as a single bare
// expression statement, the case worth echoing back.
func isExpression(input string) bool {
	tokens, err := compiler.Tokenize(input)
	if err != nil {
		return false
	}
	prog, err := compiler.Parse(tokens)
	if err != nil || len(prog.Stmts) != 1 {
		return false
	}
	_, ok := prog.Stmts[0].(*compiler.ExprStmt)
	return ok
}

// needsMore reports whether the entry has unbalanced brackets and the
// REPL should keep reading lines. String literals and comments are
// skipped so a brace inside them does not count.
func needsMore(src string) bool {
	depth := 0
	inString := false
	for i := 0; i < len(src); i++ {
		ch := src[i]
		if inString {
			switch ch {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '/':
			if i+1 < len(src) && src[i+1] == '/' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
	}
	return depth > 0
}
