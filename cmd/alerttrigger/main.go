package main

import (
	"context"
	"fmt"
	"os"

	"alerttrigger/internal/app"
	"alerttrigger/internal/config"

	"github.com/spf13/cobra"
)

// configFlags holds the shared config source flags.
type configFlags struct {
	file string
	dir  string
}

// source builds config source from flags.
// Params: none.
// Returns: source descriptor or validation error.
func (f *configFlags) source() (config.ConfigSource, error) {
	return config.FromCLI(f.file, f.dir)
}

// load reads and validates one config snapshot.
// Params: none.
// Returns: config or load error.
func (f *configFlags) load() (config.Config, error) {
	src, err := f.source()
	if err != nil {
		return config.Config{}, err
	}
	return config.LoadSnapshot(src)
}

func (f *configFlags) provided() bool {
	return f.file != "" || f.dir != ""
}

// main runs alert trigger CLI.
// Params: CLI args (serve, render, resync).
// Returns: process exit code by command result.
func main() {
	flags := &configFlags{}

	root := &cobra.Command{
		Use:           "alerttrigger",
		Short:         "Health-check alert trigger coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.file, "config-file", "", "path to one TOML config file")
	root.PersistentFlags().StringVar(&flags.dir, "config-dir", "", "path to directory with TOML config fragments")

	root.AddCommand(serveEntry(flags))
	root.AddCommand(renderEntry(flags))
	root.AddCommand(resyncEntry(flags))

	exitIfError(root.Execute())
}

func serveEntry(flags *configFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the coordinator service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := flags.source()
			if err != nil {
				return err
			}
			service, err := app.NewService(src)
			if err != nil {
				return fmt.Errorf("service init failed: %w", err)
			}
			if err := service.Run(context.Background()); err != nil {
				return fmt.Errorf("service run failed: %w", err)
			}
			return nil
		},
	}
}

func exitIfError(err error) {
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
