// Command dcpuctl assembles, disassembles, and runs DCPU-16 s-expression
// programs from the command line.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"dcpu16lisp"
	"dcpu16lisp/cpu"
	"dcpu16lisp/isa"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "dcpuctl: loading config:", err)
		os.Exit(1)
	}
	configureLogging(cfg)

	var outPath string

	rootCmd := &cobra.Command{
		Use:   "dcpuctl",
		Short: "Assemble, disassemble, and run DCPU-16 s-expression programs",
	}

	assembleCmd := &cobra.Command{
		Use:   "assemble [file]",
		Short: "Assemble an s-expression source file into a DCPU-16 binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			code, err := dcpu16.Assemble(f)
			if err != nil {
				return fmt.Errorf("assemble: %w", err)
			}
			log.Debug().Int("words", len(code)/2).Str("file", args[0]).Msg("assembled program")
			return writeOutput(outPath, code)
		},
	}
	assembleCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default: stdout)")

	disassembleCmd := &cobra.Command{
		Use:   "disassemble [file]",
		Short: "Disassemble a DCPU-16 binary back into s-expression form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			text, err := dcpu16.Disassemble(code)
			if err != nil {
				return fmt.Errorf("disassemble: %w", err)
			}
			fmt.Print(text)
			return nil
		},
	}

	var dumpRegs bool
	runCmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Assemble (or load a binary) and run it to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			c, runErr := runFile(args[0])
			log.Info().
				Dur("elapsed", time.Since(start)).
				Uint64("cycles", c.Cycles).
				Uint64("steps", c.Steps).
				Msg("run finished")
			if dumpRegs {
				dumpRegisters(c)
			}
			return runErr
		},
	}
	runCmd.Flags().BoolVar(&dumpRegs, "dump-registers", true, "print final register state")

	rootCmd.AddCommand(assembleCmd, disassembleCmd, runCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("dcpuctl failed")
		os.Exit(1)
	}
}

func configureLogging(cfg config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func writeOutput(path string, code []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(code)
		return err
	}
	return os.WriteFile(path, code, 0o644)
}

// runFile assembles s-expression source, falling back to treating the file
// as an already-encoded binary if it doesn't parse as source, then executes
// it on a fresh CPU.
func runFile(path string) (*cpu.CPU, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	code, asmErr := dcpu16.AssembleString(string(raw))
	if asmErr != nil {
		code = raw
	}

	c, err := dcpu16.Execute(code)
	if c == nil {
		return nil, err
	}
	return c, err
}

func dumpRegisters(c *cpu.CPU) {
	fmt.Fprintf(os.Stderr, "PC=%#04x SP=%#04x EX=%#04x IA=%#04x\n", c.PC(), c.SP(), c.EX(), c.IA())
	for r := isa.Register(0); int(r) < isa.NumRegisters; r++ {
		fmt.Fprintf(os.Stderr, "%s=%#04x ", r, c.Reg[r])
	}
	fmt.Fprintln(os.Stderr)
}
