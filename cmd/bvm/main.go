package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bytebasic-dev/bytebasic/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bvm",
	Short: "Run, inspect and debug bytecode programs",
	Long: `bvm loads programs from source files (.star, .py), text assembly
(.bas) or binary images (.bvi) and runs them on the bytecode machine.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid log level '%s', using 'info'\n", logLevel)
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)

		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return fmt.Errorf("loading %s: %w", configPath, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Set log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "bvm.toml", "Configuration file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(disCmd)
	rootCmd.AddCommand(imageCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
