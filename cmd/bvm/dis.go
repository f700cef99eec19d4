package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

var asmFlag bool

var disCmd = &cobra.Command{
	Use:   "dis FILE",
	Short: "List the instructions of every program in a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		progs, err := loadFile(args[0])
		if err != nil {
			return err
		}
		for _, p := range progs {
			if asmFlag {
				if err := p.Disassemble(os.Stdout); err != nil {
					return err
				}
				continue
			}
			fmt.Println(color.Bold.Sprintf("%s (%d instructions)", p.Name, p.Len()))
			if err := p.List(os.Stdout); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	disCmd.Flags().BoolVar(&asmFlag, "asm", false, "Write text assembly that the loader reads back")
}
