package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/BrianSMitchell/Synapse-sub000/vm"
)

// runProgram compiles a source string and runs it to completion,
// returning the program result and everything it printed.
func runProgram(t *testing.T, src string) (vm.Value, string) {
	t.Helper()
	unit, err := CompileSource(src)
	if err != nil {
		t.Fatalf("CompileSource: %v", err)
	}
	sink := &vm.BufferSink{}
	result, err := vm.Execute(unit, vm.Config{Sink: sink})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return result, sink.String()
}

func TestIntegrationFactorial(t *testing.T) {
	src := `
fn factorial(n) {
    if n <= 1 {
        return 1
    }
    return n * factorial(n - 1)
}

print factorial(5)
return factorial(6)
`
	result, out := runProgram(t, src)
	if out != "120\n" {
		t.Errorf("output = %q, want %q", out, "120\n")
	}
	if result.Kind != vm.KindInt || result.Int != 720 {
		t.Errorf("result = %s, want 720", result)
	}
}

func TestIntegrationFibonacci(t *testing.T) {
	src := `
fn fib(n) {
    let a = 0
    let b = 1
    let i = 0
    while i < n {
        let next = a + b
        a = b
        b = next
        i = i + 1
    }
    return a
}

print fib(10)
print fib(1)
print fib(0)
`
	_, out := runProgram(t, src)
	if out != "55\n1\n0\n" {
		t.Errorf("output = %q, want %q", out, "55\n1\n0\n")
	}
}

func TestIntegrationWhileScoping(t *testing.T) {
	src := `
let i = 0
let total = 0
while i < 3 {
    let doubled = i * 2
    total = total + doubled
    i = i + 1
}
print total
`
	_, out := runProgram(t, src)
	if out != "6\n" {
		t.Errorf("output = %q, want %q", out, "6\n")
	}
}

func TestIntegrationGlobalMutation(t *testing.T) {
	src := `
let count = 0

fn bump() {
    count = count + 1
}

bump()
bump()
bump()
print count
`
	_, out := runProgram(t, src)
	if out != "3\n" {
		t.Errorf("output = %q, want %q", out, "3\n")
	}
}

func TestIntegrationArrays(t *testing.T) {
	src := `
let values = [3, 1, 4, 1, 5]
values[1] = 9

let sum = 0
let i = 0
while i < len(values) {
    sum = sum + values[i]
    i = i + 1
}
print sum
print values
`
	_, out := runProgram(t, src)
	want := "22\n[3, 9, 4, 1, 5]\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestIntegrationElseIfChain(t *testing.T) {
	src := `
fn grade(score) {
    if score >= 90 {
        return "A"
    } else if score >= 80 {
        return "B"
    } else if score >= 70 {
        return "C"
    } else {
        return "F"
    }
}

print grade(95)
print grade(83)
print grade(70)
print grade(12)
`
	_, out := runProgram(t, src)
	if out != "A\nB\nC\nF\n" {
		t.Errorf("output = %q, want %q", out, "A\nB\nC\nF\n")
	}
}

func TestIntegrationRuntimeErrors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		fragment string
	}{
		{"division by zero", "print 1 / 0", "division by zero"},
		{"index out of bounds", "let a = [1, 2, 3]\nprint a[5]", "array index 5 out of bounds"},
		{"type mismatch", `print 1 + "one"`, "cannot add int and string"},
		{"runaway recursion", "fn spin(n) { return spin(n + 1) }\nprint spin(0)", "call depth limit"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			unit, err := CompileSource(tc.source)
			if err != nil {
				t.Fatalf("CompileSource: %v", err)
			}
			_, err = vm.Execute(unit, vm.Config{Sink: &vm.BufferSink{}})
			if err == nil {
				t.Fatalf("expected a runtime error mentioning %q", tc.fragment)
			}
			if _, ok := err.(*vm.RuntimeError); !ok {
				t.Fatalf("error type = %T, want *vm.RuntimeError", err)
			}
			if !strings.Contains(err.Error(), tc.fragment) {
				t.Errorf("error = %q, want it to mention %q", err, tc.fragment)
			}
		})
	}
}

// programCase is one corpus entry: a source program and either its
// exact output or a fragment of the error it must fail with.
type programCase struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Stdout string `yaml:"stdout,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

func TestProgramCorpus(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "programs.yaml"))
	if err != nil {
		t.Fatalf("read corpus: %v", err)
	}
	var cases []programCase
	if err := yaml.Unmarshal(data, &cases); err != nil {
		t.Fatalf("decode corpus: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("corpus is empty")
	}

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			unit, err := CompileSource(tc.Source)
			if tc.Error != "" {
				if err == nil {
					_, err = vm.Execute(unit, vm.Config{Sink: &vm.BufferSink{}})
				}
				if err == nil {
					t.Fatalf("expected an error mentioning %q", tc.Error)
				}
				if !strings.Contains(err.Error(), tc.Error) {
					t.Errorf("error = %q, want it to mention %q", err, tc.Error)
				}
				return
			}
			if err != nil {
				t.Fatalf("CompileSource: %v", err)
			}
			sink := &vm.BufferSink{}
			if _, err := vm.Execute(unit, vm.Config{Sink: sink}); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if sink.String() != tc.Stdout {
				t.Errorf("output = %q, want %q", sink.String(), tc.Stdout)
			}
		})
	}
}
