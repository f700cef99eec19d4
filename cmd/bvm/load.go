package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bytebasic-dev/bytebasic/compile"
	"github.com/bytebasic-dev/bytebasic/config"
	"github.com/bytebasic-dev/bytebasic/interp"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/rs/zerolog/log"
)

// loadFile reads the programs in path, picking the format by extension.
// Source files can hold several programs; the first is the file's top level.
func loadFile(path string) ([]*vm.Bytecode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bvi":
		b := &vm.Bytecode{}
		if err := b.Deserialize(f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return []*vm.Bytecode{b}, nil
	case ".bas", ".asm":
		b, err := vm.Assemble(f, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if b.Name == "" {
			b.Name = strings.ToUpper(name)
		}
		return []*vm.Bytecode{b}, nil
	default:
		return compile.File(name, f)
	}
}

// newRuntime registers every program named in the configuration, then the
// programs in path, and returns path's main program.
func newRuntime(c *config.Config, path string) (*interp.Runtime, *vm.Bytecode, error) {
	rt := interp.NewRuntime(c)
	rt.Compiler = compile.Compiler{}
	for _, name := range slices.Sorted(maps.Keys(c.Programs)) {
		progs, err := loadFile(c.Programs[name])
		if err != nil {
			return nil, nil, err
		}
		progs[0].Name = strings.ToUpper(name)
		if err := register(rt, progs); err != nil {
			return nil, nil, err
		}
	}
	progs, err := loadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if err := register(rt, progs); err != nil {
		return nil, nil, err
	}
	return rt, progs[0], nil
}

func register(rt *interp.Runtime, progs []*vm.Bytecode) error {
	for _, p := range progs {
		if err := rt.Register(p); err != nil {
			return err
		}
		log.Debug().Str("program", p.Name).Int("instructions", p.Len()).Msg("loaded")
	}
	return nil
}

// argValues turns command line arguments into program arguments.
func argValues(args []string) vm.ArrayValue {
	out := make(vm.ArrayValue, len(args))
	for i, a := range args {
		out[i] = vm.ParseValue(a)
	}
	return out
}
