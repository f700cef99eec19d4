package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytebasic-dev/bytebasic/vm"
	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

var outDir string

var imageCmd = &cobra.Command{
	Use:   "image FILE",
	Short: "Write a binary image for every program in a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		progs, err := loadFile(args[0])
		if err != nil {
			return err
		}
		for _, p := range progs {
			path := filepath.Join(outDir, strings.ToLower(p.Name)+".bvi")
			if err := writeImage(path, p); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, color.Green.Sprintf("wrote %s", path))
		}
		return nil
	},
}

func init() {
	imageCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
}

func writeImage(path string, p *vm.Bytecode) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.Serialize(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
