package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pbanos/ranknear/point"
	"github.com/pbanos/ranknear/source"
	"github.com/pbanos/ranknear/source/csv"
	"github.com/spf13/cobra"
)

// importBatchSize is the number of points written at a time by the import command
const importBatchSize = 1000

type importCmdConfig struct {
	*rootCmdConfig
	input  string
	output string
}

func importCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &importCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import check-ins from a CSV file",
		Long: `Import check-ins from a CSV file with lng, lat, category and checkins columns (and optional id and geohash columns)
into a SQLite3 file, a PostgreSQL or MongoDB database or another CSV file, computing the geohash of every point.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			w, err := config.writer(ctx, config.output)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			n, err := config.importPoints(ctx, w)
			if err != nil {
				w.Close()
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			config.Logf("%d points imported", n)
			if gu, ok := w.(source.GeohashUpdater); ok {
				updated, err := gu.UpdateGeohashes(ctx)
				if err != nil {
					w.Close()
					fmt.Fprintln(os.Stderr, err)
					os.Exit(4)
				}
				config.Logf("Geohashes of %d stored points computed", updated)
			}
			if err = w.Close(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
			config.Logf("Done")
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.input), "input", "i", "", "path to the CSV file to import (defaults to STDIN)")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", os.Getenv("RANKNEAR_INPUT"), inputHelp+" to import the check-ins into (defaults to $RANKNEAR_INPUT or STDOUT, as CSV)")
	return cmd
}

func (icc *importCmdConfig) Validate() error {
	if icc.input != "" && icc.input == icc.output {
		return fmt.Errorf("input and output must be different")
	}
	return nil
}

func (icc *importCmdConfig) importPoints(ctx context.Context, w pointWriter) (int, error) {
	f := os.Stdin
	if icc.input != "" {
		var err error
		f, err = os.Open(icc.input)
		if err != nil {
			return 0, fmt.Errorf("reading points from %s: %w", icc.input, err)
		}
		defer f.Close()
	}
	var imported int
	batch := make([]point.Point, 0, importBatchSize)
	flush := func() error {
		n, err := w.Write(ctx, batch)
		imported += n
		batch = batch[:0]
		if err != nil {
			return err
		}
		icc.Logf("%d points imported...", imported)
		return nil
	}
	err := csv.ReadByPoint(f, func(_ int, p point.Point) (bool, error) {
		if p.Geohash == "" {
			p.Geohash = point.Geohash(p.Lng, p.Lat)
		}
		batch = append(batch, p)
		if len(batch) < importBatchSize {
			return true, nil
		}
		return true, flush()
	})
	if err == nil && len(batch) > 0 {
		err = flush()
	}
	return imported, err
}
