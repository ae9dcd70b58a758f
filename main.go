// FresnelArrayDiffraction computes the diffraction pattern of a Fresnel zone plate
// (a "Fresnel array") illuminated by a distant point source.
//
// Usage: FresnelArrayDiffraction <parameter-file>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/config"
	"github.com/bob-anderson-ok/FresnelArrayDiffraction/pipeline"
)

var (
	logLevel string
	noWindow bool

	rootCmd = &cobra.Command{
		Use:   "FresnelArrayDiffraction <parameter-file>",
		Short: "Simulates the diffraction of a Fresnel array",
		Long: `Builds (or reads from the mask cache) a Fresnel zone plate mask, illuminates it with the
plane wave of a point source at infinity and propagates the field to the observation plane.
The parameter file is JSON5, YAML or TOML.`,
		Args:          cobra.ExactArgs(1),
		RunE:          runSimulation,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "panic, fatal, error, warn, info, debug or trace")
	rootCmd.Flags().BoolVar(&noWindow, "no-window", false, "do not open the display windows")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		return nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\n\t%v\n\n", err)
		os.Exit(1)
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	path := args[0]

	params, err := config.Load(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := pipeline.New(params, log.StandardLogger())
	res, err := app.Run(ctx)
	if err != nil {
		return err
	}

	if params.WindowSizePixels > 0 && !noWindow {
		showResults(params, res)
	}
	return nil
}
