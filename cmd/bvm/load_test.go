package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/bytebasic-dev/bytebasic/config"
	"github.com/bytebasic-dev/bytebasic/interp"
	"github.com/bytebasic-dev/bytebasic/status"
	"github.com/bytebasic-dev/bytebasic/symtab"
	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/stretchr/testify/require"
)

const helper = `def twice(n):
    return n * 2
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "lib.star")
	writeFile(t, src, helper)

	progs, err := loadFile(src)
	require.NoError(t, err)
	require.Len(t, progs, 2)
	require.Equal(t, "LIB", progs[0].Name)
	twice := progs[1]
	require.Equal(t, "TWICE", twice.Name)

	var asm bytes.Buffer
	require.NoError(t, twice.Disassemble(&asm))
	asmPath := filepath.Join(dir, "twice.bas")
	writeFile(t, asmPath, asm.String())
	fromAsm, err := loadFile(asmPath)
	require.NoError(t, err)
	require.Len(t, fromAsm, 1)
	require.Equal(t, twice.Len(), fromAsm[0].Len())

	imgPath := filepath.Join(dir, "twice.bvi")
	require.NoError(t, writeImage(imgPath, twice))
	fromImg, err := loadFile(imgPath)
	require.NoError(t, err)
	require.Equal(t, "TWICE", fromImg[0].Name)
	require.Equal(t, twice.Len(), fromImg[0].Len())

	_, err = loadFile(filepath.Join(dir, "missing.star"))
	require.Error(t, err)
}

func TestNewRuntimeRegistersConfiguredPrograms(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.star")
	writeFile(t, lib, helper)
	mainPath := filepath.Join(dir, "main.star")
	writeFile(t, mainPath, "print(twice(3))\n")

	c := config.Default()
	c.Programs["double"] = lib
	// DOUBLE is the lib's top level; TWICE comes with it.
	rt, prog, err := newRuntime(c, mainPath)
	require.NoError(t, err)
	require.Equal(t, "MAIN", prog.Name)
	require.ElementsMatch(t, []string{"DOUBLE", "MAIN", "TWICE"}, rt.Programs.Names())

	var out bytes.Buffer
	s := rt.NewSession(interp.NewConsole(nil, &out))
	m := s.NewMachine()
	v, err := m.Call(context.Background(), "TWICE", vm.IntValue(21))
	require.NoError(t, err)
	require.Equal(t, vm.IntValue(42), v)

	_, err = m.Run(context.Background(), prog, symtab.NewTable(prog.Name, s.Global))
	require.NoError(t, err)
	require.Equal(t, "6\n", out.String())
}

func TestArgValuesAndBreakSpec(t *testing.T) {
	require.Equal(t, vm.ArrayValue{vm.IntValue(3), vm.FloatValue(2.5), vm.StrValue("x"), vm.BoolTrue},
		argValues([]string{"3", "2.5", "x", "true"}))

	program, line, err := parseBreak("main:20")
	require.NoError(t, err)
	require.Equal(t, "main", program)
	require.Equal(t, 20, line)
	_, _, err = parseBreak("main")
	require.Error(t, err)
	_, _, err = parseBreak("main:x")
	require.Error(t, err)
}

func TestInterruptAbortsSession(t *testing.T) {
	rt := interp.NewRuntime(nil)
	s := rt.NewSession(interp.NewConsole(nil, nil))
	code := vm.NewBytecode("SPIN")
	code.Emit(
		vm.NewStr(vm.STRING, string(status.Interrupt)),
		vm.NewStr(vm.ERROR, "H"),
		vm.NewStr(vm.LABEL, "TOP"),
		vm.NewInt(vm.BR, 2),
		vm.NewStr(vm.LABEL, "H"),
		vm.NewStr(vm.STRING, "caught"),
		vm.NewOp(vm.END),
	)
	require.NoError(t, code.Link())

	stop := onInterrupt(s.Abort)
	defer stop()
	go func() {
		for rt.Instructions() < 100 {
			time.Sleep(time.Millisecond)
		}
		_ = syscall.Kill(os.Getpid(), syscall.SIGINT)
	}()
	f, err := s.NewMachine().Run(context.Background(), code, symtab.NewTable("SPIN", s.Global))
	require.NoError(t, err)
	require.Equal(t, []vm.Value{vm.StrValue("caught")}, f.Stack)
}
