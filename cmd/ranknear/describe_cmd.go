package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pbanos/ranknear"
	"github.com/pbanos/ranknear/report"
	"github.com/spf13/cobra"
)

type describeCmdConfig struct {
	*rootCmdConfig
	input    string
	plotsDir string
	bins     int
}

func describeCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &describeCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Describe a prepared dataset",
		Long:  `Print the category counts of a prepared dataset and summary statistics of its features, and optionally plot their histograms.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			store, err := config.store(config.input)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			d := ranknear.New()
			if err = d.LoadFrom(context.Background(), store); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			st := d.Statistics()
			fmt.Printf("%d points, %d labelled feature vectors\n", st.Total(), len(d.Features()))
			counts := st.Counts()
			for _, c := range counts.Categories() {
				fmt.Printf("%-24s %d\n", c, counts[c])
			}
			for _, s := range report.Summarize(d.Features()) {
				fmt.Println(s)
			}
			if config.plotsDir == "" {
				return
			}
			paths, err := report.Histograms(d.Features(), config.plotsDir, config.bins)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			for _, p := range paths {
				config.Logf("Histogram written to %s", p)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.input), "input", "i", os.Getenv("RANKNEAR_OUTPUT"), "path to the file, or redis:// URL, holding the prepared dataset (defaults to $RANKNEAR_OUTPUT, required)")
	cmd.PersistentFlags().StringVarP(&(config.plotsDir), "plots", "p", "", "directory to write feature histograms to as PNG files")
	cmd.PersistentFlags().IntVarP(&(config.bins), "bins", "b", 20, "number of bins of the histograms")
	return cmd
}

func (dcc *describeCmdConfig) Validate() error {
	if dcc.input == "" {
		return fmt.Errorf("required input flag was not set")
	}
	if dcc.bins < 1 {
		return fmt.Errorf("invalid bins %d: must be positive", dcc.bins)
	}
	return nil
}
