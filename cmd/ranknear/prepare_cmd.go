package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/pbanos/ranknear"
	"github.com/spf13/cobra"
)

type prepareCmdConfig struct {
	*rootCmdConfig
	input          string
	output         string
	configFile     string
	workers        int
	radius         float64
	targetCategory string
	progressStep   int
	force          bool
}

func prepareCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &prepareCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Prepare the training data of a check-in dataset",
		Long: `Compute the category statistics of a check-in dataset and the labelled feature vector of every point in it,
and save them. If the output already holds a prepared dataset, it is loaded instead unless --force is given.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			rc, err := config.ranknearConfig(cmd)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			store, err := config.store(config.output)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			d := ranknear.New()
			if !config.force {
				start := time.Now()
				err = d.LoadFrom(ctx, store)
				if err == nil {
					config.Logf("Pre-calculated dataset found at %s, loaded %d feature vectors in %v", config.output, len(d.Features()), time.Since(start))
					return
				}
				if !errors.Is(err, ranknear.ErrNotFound) {
					fmt.Fprintf(os.Stderr, "loading pre-calculated dataset: %v\n", err)
					os.Exit(4)
				}
				config.Logf("Pre-calculated dataset not found at %s, preparing it...", config.output)
			}
			opener, err := config.opener(config.input)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
			start := time.Now()
			if err = d.Prepare(ctx, opener, rc); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(6)
			}
			config.Logf("Dataset prepared in %v", time.Since(start))
			start = time.Now()
			if err = d.SaveTo(ctx, store); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(7)
			}
			config.Logf("Prepared dataset stored into %s in %v", config.output, time.Since(start))
		},
	}
	config.bindFlags(cmd)
	return cmd
}

func (pcc *prepareCmdConfig) bindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&(pcc.input), "input", "i", os.Getenv("RANKNEAR_INPUT"), inputHelp+" with the check-ins to prepare (defaults to $RANKNEAR_INPUT or STDIN, interpreted as CSV)")
	cmd.PersistentFlags().StringVarP(&(pcc.output), "output", "o", os.Getenv("RANKNEAR_OUTPUT"), "path to the file, or redis:// URL, to store the prepared dataset on (defaults to $RANKNEAR_OUTPUT, required)")
	cmd.PersistentFlags().StringVarP(&(pcc.configFile), "config", "c", os.Getenv("RANKNEAR_CONFIG"), "path to a YML file with preparation settings (defaults to $RANKNEAR_CONFIG), overridden by flags")
	cmd.PersistentFlags().IntVarP(&(pcc.workers), "workers", "w", 0, "number of concurrent workers (defaults to the number of CPUs)")
	cmd.PersistentFlags().Float64VarP(&(pcc.radius), "radius", "r", ranknear.DefaultRadius, "neighbor search radius in metres")
	cmd.PersistentFlags().StringVarP(&(pcc.targetCategory), "target-category", "t", "", "category to compute competitiveness and quality for (defaults to the category of each point)")
	cmd.PersistentFlags().IntVar(&(pcc.progressStep), "progress-step", 0, "number of points between progress lines in verbose mode (defaults to 10000)")
	cmd.PersistentFlags().BoolVar(&(pcc.force), "force", false, "prepare the dataset even if the output already holds one")
}

func (pcc *prepareCmdConfig) Validate() error {
	if pcc.output == "" {
		return fmt.Errorf("required output flag was not set")
	}
	if pcc.workers < 0 {
		return fmt.Errorf("invalid workers %d: must not be negative", pcc.workers)
	}
	if !(pcc.radius > 0) || math.IsInf(pcc.radius, 0) {
		return fmt.Errorf("invalid radius %g: must be a finite positive number", pcc.radius)
	}
	return nil
}

// ranknearConfig reads the config file, if any, and applies the flags set on top of it
func (pcc *prepareCmdConfig) ranknearConfig(cmd *cobra.Command) (*ranknear.Config, error) {
	rc := &ranknear.Config{}
	if pcc.configFile != "" {
		pcc.Logf("Reading settings from %s...", pcc.configFile)
		var err error
		rc, err = ranknear.ReadConfigFile(pcc.configFile)
		if err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("workers") || rc.Workers == 0 {
		rc.Workers = pcc.workers
	}
	if flags.Changed("radius") || rc.Radius == 0 {
		rc.Radius = pcc.radius
	}
	if flags.Changed("target-category") {
		rc.TargetCategory = pcc.targetCategory
	}
	if flags.Changed("progress-step") {
		rc.ProgressStep = pcc.progressStep
	}
	rc.Logger = pcc.logger
	return rc, rc.Validate()
}
