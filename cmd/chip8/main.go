// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package main implements the main entry point for the CHIP-8 emulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"

	"github.com/ezrec/chip8/asm"
	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/sdl"
)

func createLogger(debug bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	}
	return log.NewWithConfig(cfg)
}

func main() {
	var compile string
	var stepwise bool
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to assemble and run")
	flag.BoolVar(&stepwise, "s", false, "Step one instruction per keystroke")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	ctx := app.Context()
	logger := createLogger(verbose)

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	var rom []byte

	switch {
	case len(compile) != 0:
		inf, err := os.Open(compile)
		if err != nil {
			logger.Fatal(err.Error())
		}
		defer inf.Close()

		assembler := &asm.Assembler{Verbose: verbose}
		for name, value := range emu.Defines() {
			assembler.Predefine(name, value)
		}
		prog, err := assembler.Parse(inf)
		if err != nil {
			logger.Fatal(err.Error())
		}
		rom = prog.Binary()
	case flag.NArg() >= 1:
		var err error
		rom, err = os.ReadFile(flag.Arg(0))
		if err != nil {
			logger.Fatal(err.Error())
		}
		// A second argument, whatever it is, selects stepwise mode.
		if flag.NArg() > 1 {
			stepwise = true
		}
	default:
		fmt.Println("chip-8 rom file name required")
		os.Exit(1)
	}

	if err := emu.Load(rom); err != nil {
		logger.Fatal(err.Error())
	}

	io := sdl.NewIO(emu, logger)
	io.Stepwise = stepwise
	defer io.Destroy()

	if err := io.SetupWindow("CHIP-8"); err != nil {
		logger.Fatal(err.Error())
	}

	if err := io.Loop(ctx); err != nil {
		logger.Error("Execution stopped", log.Err(err))
		os.Exit(1)
	}
}
