// Command rythmc compiles and renders a directory of Rythm templates.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	rythm "github.com/dangdungcntt/go-rythm"
)

type flags struct {
	dir     string
	config  string
	dialect string
	compact bool
	debug   bool
}

func main() {
	var f flags

	rootCmd := &cobra.Command{
		Use:           "rythmc",
		Short:         "Compile and render Rythm templates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&f.dir, "dir", "d", "", "Template directory (overrides RYTHM_VIEWS_DIR)")
	rootCmd.PersistentFlags().StringVar(&f.config, "config", ".", "Directory holding rythm.env")
	rootCmd.PersistentFlags().StringVar(&f.dialect, "dialect", "", "Force a dialect: basic or rythm")
	rootCmd.PersistentFlags().BoolVar(&f.compact, "compact", false, "Collapse whitespace in literal text")
	rootCmd.PersistentFlags().BoolVar(&f.debug, "debug", false, "Enable debug output")

	rootCmd.AddCommand(compileCmd(&f), renderCmd(&f), watchCmd(&f))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// engine builds and loads an engine from rythm.env and the command line.
func (f *flags) engine() (*rythm.Engine, error) {
	c, err := rythm.LoadConfig(f.config)
	if err != nil {
		return nil, err
	}
	if f.dir != "" {
		c.ViewsDir = f.dir
	}
	if f.dialect != "" {
		c.Dialect = f.dialect
	}
	if f.compact {
		c.Compact = true
	}
	e, err := rythm.NewEngineFromConfig(c, newLogger(f.debug))
	if err != nil {
		return nil, err
	}
	if err := e.Load(); err != nil {
		return nil, err
	}
	return e, nil
}

func compileCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "compile [template...]",
		Short: "Compile templates and print the generated Go template source",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := f.engine()
			if err != nil {
				return err
			}
			debug := e.GetDebugTemplates()
			names := args
			if len(names) == 0 {
				names = e.Templates()
			}
			out := cmd.OutOrStdout()
			for _, name := range names {
				text, ok := debug[name]
				if !ok {
					return fmt.Errorf("template %s not loaded", name)
				}
				fmt.Fprintf(out, "==> %s <==\n%s\n", name, text)
			}
			return nil
		},
	}
}

func renderCmd(f *flags) *cobra.Command {
	var dataFile string
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readData(dataFile)
			if err != nil {
				return err
			}
			e, err := f.engine()
			if err != nil {
				return err
			}
			return e.RenderContext(cmd.Context(), cmd.OutOrStdout(), args[0], data)
		},
	}
	cmd.Flags().StringVar(&dataFile, "data", "", "YAML or JSON file with the render arguments")
	return cmd
}

// readData loads render arguments. JSON is valid YAML, so both are read
// with the YAML decoder.
func readData(file string) (map[string]any, error) {
	if file == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("error reading data file %s: %w", file, err)
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("error parsing data file %s: %w", file, err)
	}
	return data, nil
}

func watchCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Recompile templates whenever they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := f.engine()
			if err != nil {
				return err
			}
			for _, n := range e.Templates() {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return e.Watch(ctx)
		},
	}
}
