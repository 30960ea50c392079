// Command nexus is the CLI entry point: it reads a source buffer (a file
// argument or stdin), drives it through the compiler, and writes each
// program's result to stdout or to --out.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/skx/nexus-compiler/codegen6502"
	"github.com/skx/nexus-compiler/compiler"
	"github.com/skx/nexus-compiler/diagnostics"
)

func main() {
	var (
		target string
		debug  bool
		out    string
	)

	rootCmd := &cobra.Command{
		Use:           "nexus [file|-]",
		Short:         "Compile a teaching-language source file to 6502 bytes or RISC-V assembly",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTarget(target)
			if err != nil {
				return err
			}

			source, err := readSource(args[0])
			if err != nil {
				return err
			}

			sink := diagnostics.New()
			c := compiler.New(source, t, sink)
			c.SetDebug(debug)

			results, err := c.Compile()
			if err != nil {
				return err
			}

			w, closeFunc, err := openOut(out)
			if err != nil {
				return err
			}
			defer func() { _ = closeFunc() }()

			writeResults(w, results, t)

			if debug {
				for _, r := range sink.Records() {
					fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", r.Level, r.Source, r.Text)
				}
			}

			for _, r := range results {
				if !r.Ok {
					return fmt.Errorf("program %d failed to compile", r.Number)
				}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&target, "target", "6502", "backend target: 6502 or riscv")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print diagnostics to stderr")
	rootCmd.PersistentFlags().StringVar(&out, "out", "-", "output path, or - for stdout")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nexus: %s\n", err)
		os.Exit(1)
	}
}

func parseTarget(target string) (compiler.Target, error) {
	switch target {
	case "6502":
		return compiler.Target6502, nil
	case "riscv":
		return compiler.TargetRISCV, nil
	default:
		return 0, fmt.Errorf("unknown target %q: want 6502 or riscv", target)
	}
}

func readSource(filename string) (string, error) {
	if filename == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("error reading stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("error reading %s: %w", filename, err)
	}
	return string(b), nil
}

func openOut(out string) (io.Writer, func() error, error) {
	if out == "-" || out == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating %s: %w", out, err)
	}
	return f, f.Close, nil
}

func writeResults(w io.Writer, results []compiler.ProgramResult, target compiler.Target) {
	for _, r := range results {
		if !r.Ok {
			fmt.Fprintf(w, "-- program %d: compilation failed --\n", r.Number)
			continue
		}
		switch target {
		case compiler.TargetRISCV:
			fmt.Fprintf(w, "-- program %d --\n%s\n", r.Number, r.ListingRISCV)
		default:
			writeImage(w, r.Number, r.Image6502)
		}
	}
}

func writeImage(w io.Writer, number int, img codegen6502.Image) {
	fmt.Fprintf(w, "-- program %d --\n", number)
	for i := 0; i < len(img); i += 16 {
		fmt.Fprintf(w, "%02x: ", i)
		for _, b := range img[i : i+16] {
			fmt.Fprintf(w, "%02x ", b)
		}
		fmt.Fprintln(w)
	}
}
