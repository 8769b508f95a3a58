// Synapse CLI - compiles, runs, inspects and ships Synapse programs.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	"github.com/BrianSMitchell/Synapse-sub000/bytecode"
	"github.com/BrianSMitchell/Synapse-sub000/compiler"
	"github.com/BrianSMitchell/Synapse-sub000/manifest"
	"github.com/BrianSMitchell/Synapse-sub000/vm"

	_ "github.com/tliron/commonlog/simple"
)

const artifactExt = ".synb"

var log = commonlog.GetLogger("synapse")

func main() {
	eval := flag.String("e", "", "Evaluate a program given on the command line")
	build := flag.Bool("build", false, "Compile to a "+artifactExt+" artifact instead of running")
	output := flag.String("o", "", "Artifact output path (with -build)")
	disasm := flag.Bool("disasm", false, "Print the bytecode listing instead of running")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	registers := flag.Int("registers", 0, "Per-frame register window capacity (default 256)")
	depth := flag.Int("depth", 0, "Call stack depth limit (default 1000)")
	verbose := flag.Bool("v", false, "Verbose logging")
	veryVerbose := flag.Bool("vv", false, "Very verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: synapse [options] [file | directory]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs Synapse programs (.syn) and prebuilt artifacts (%s).\n\n", artifactExt)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  synapse program.syn           # Compile and run a source file\n")
		fmt.Fprintf(os.Stderr, "  synapse program%s          # Run a prebuilt artifact\n", artifactExt)
		fmt.Fprintf(os.Stderr, "  synapse ./demo                # Run a project directory's entry\n")
		fmt.Fprintf(os.Stderr, "  synapse -e 'print(2 + 3)'     # Evaluate an inline program\n")
		fmt.Fprintf(os.Stderr, "  synapse -build program.syn    # Compile to program%s\n", artifactExt)
		fmt.Fprintf(os.Stderr, "  synapse -disasm program.syn   # Show the bytecode listing\n")
		fmt.Fprintf(os.Stderr, "  synapse -i                    # Start the REPL\n")
		fmt.Fprintf(os.Stderr, "\nWith no file, synapse runs the entry of the nearest synapse.toml,\n")
		fmt.Fprintf(os.Stderr, "starts the REPL on a terminal, or reads a program from stdin.\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	if *veryVerbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	cfg := vm.DefaultConfig()

	// A directory argument names the project to run; otherwise the
	// nearest manifest up from the working directory applies.
	projectDir := ""
	if flag.NArg() > 0 {
		if info, err := os.Stat(flag.Arg(0)); err == nil && info.IsDir() {
			projectDir = flag.Arg(0)
		}
	}

	var man *manifest.Manifest
	var err error
	if projectDir != "" {
		man, err = manifest.Load(projectDir)
		if err != nil {
			fail("%v", err)
		}
	} else {
		man, err = manifest.FindAndLoad(".")
		if err != nil {
			log.Warningf("manifest: %v", err)
		}
	}
	if man != nil {
		log.Infof("using manifest in %s", man.Dir)
		if man.VM.Registers > 0 {
			cfg.Registers = man.VM.Registers
		}
		if man.VM.CallDepth > 0 {
			cfg.CallDepth = man.VM.CallDepth
		}
	}
	if *registers > 0 {
		cfg.Registers = *registers
	}
	if *depth > 0 {
		cfg.CallDepth = *depth
	}

	switch {
	case *eval != "":
		if *build && *output == "" {
			fail("need -o to build an inline program")
		}
		runSource(*eval, "eval"+artifactExt, cfg, *build, *output, *disasm)

	case projectDir != "":
		runManifestEntry(man, cfg, *build, *output, *disasm)

	case flag.NArg() > 0:
		path := flag.Arg(0)
		if filepath.Ext(path) == artifactExt {
			if *build {
				fail("%s is already an artifact", path)
			}
			runArtifact(path, cfg, *disasm)
			return
		}
		source, err := os.ReadFile(path)
		if err != nil {
			fail("cannot read %s: %v", path, err)
		}
		out := *output
		if out == "" {
			out = strings.TrimSuffix(path, filepath.Ext(path)) + artifactExt
		}
		runSource(string(source), out, cfg, *build, out, *disasm)

	case *interactive:
		runREPL(cfg)

	case man != nil:
		runManifestEntry(man, cfg, *build, *output, *disasm)

	case stdinIsTerminal():
		runREPL(cfg)

	default:
		source, err := io.ReadAll(os.Stdin)
		if err != nil {
			fail("cannot read stdin: %v", err)
		}
		runSource(string(source), "stdin"+artifactExt, cfg, *build, *output, *disasm)
	}
}

// runManifestEntry compiles and runs (or builds, or disassembles) the
// manifest's entry source.
func runManifestEntry(man *manifest.Manifest, cfg vm.Config, build bool, output string, disasm bool) {
	entry := man.EntryPath()
	source, err := os.ReadFile(entry)
	if err != nil {
		fail("cannot read manifest entry %s: %v", entry, err)
	}
	if output == "" {
		output = man.OutputPath()
	}
	runSource(string(source), output, cfg, build, output, disasm)
}

// runSource compiles a program and then runs, disassembles or builds
// it depending on the flags.
func runSource(source, defaultOut string, cfg vm.Config, build bool, output string, disasm bool) {
	unit, err := compiler.CompileSource(source)
	if err != nil {
		fail("%v", err)
	}
	log.Debugf("compiled %d instructions, %d constants, %d functions",
		len(unit.Code), len(unit.Constants), len(unit.Functions))

	switch {
	case disasm:
		fmt.Print(unit.Disassemble())

	case build:
		if output == "" {
			output = defaultOut
		}
		data, err := bytecode.MarshalUnit(unit, source)
		if err != nil {
			fail("%v", err)
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			fail("cannot write %s: %v", output, err)
		}
		log.Infof("wrote %s (%d bytes)", output, len(data))

	default:
		runUnit(unit, cfg)
	}
}

// runArtifact loads a prebuilt artifact and runs or disassembles it.
// When the source the artifact was built from still sits next to it,
// a stale artifact is reported but still runs.
func runArtifact(path string, cfg vm.Config, disasm bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		fail("cannot read %s: %v", path, err)
	}
	art, err := bytecode.UnmarshalUnit(data)
	if err != nil {
		fail("%v", err)
	}
	log.Infof("loaded artifact %s (build %s)", path, art.BuildID)

	sourcePath := strings.TrimSuffix(path, artifactExt) + ".syn"
	if source, err := os.ReadFile(sourcePath); err == nil {
		if err := art.VerifySource(string(source)); err != nil {
			log.Warningf("%s is stale: %s has changed since it was built", path, sourcePath)
		}
	}

	if disasm {
		fmt.Print(art.Unit.Disassemble())
		return
	}
	runUnit(art.Unit, cfg)
}

// runUnit executes a compiled unit. An integer program result becomes
// the process exit code, the way shells expect.
func runUnit(unit *bytecode.Unit, cfg vm.Config) {
	result, err := vm.Execute(unit, cfg)
	if err != nil {
		fail("%v", err)
	}
	if result.Kind == vm.KindInt {
		os.Exit(int(result.Int))
	}
}

func stdinIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
