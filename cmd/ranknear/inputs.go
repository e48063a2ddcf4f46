package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pbanos/ranknear"
	"github.com/pbanos/ranknear/point"
	"github.com/pbanos/ranknear/source"
	"github.com/pbanos/ranknear/source/csv"
	"github.com/pbanos/ranknear/source/memsource"
	"github.com/pbanos/ranknear/source/mongosource"
	"github.com/pbanos/ranknear/source/pgsource"
	"github.com/pbanos/ranknear/source/sqlite3source"
	"github.com/pbanos/ranknear/store/redisstore"
	"gopkg.in/redis.v5"
)

const inputHelp = "path to an input CSV (.csv) or SQLite3 (.db) file, or a PostgreSQL (postgres://) or MongoDB (mongodb://) connection URL"

type pointWriter interface {
	Write(context.Context, []point.Point) (int, error)
	Close() error
}

// csvPointWriter adapts a csv.Writer on a file to a pointWriter
type csvPointWriter struct {
	*csv.Writer
	f *os.File
}

func isPostgreSQL(input string) bool {
	return strings.HasPrefix(input, "postgres://") || strings.HasPrefix(input, "postgresql://")
}

func isMongoDB(input string) bool {
	return strings.HasPrefix(input, "mongodb://")
}

func (l logger) opener(input string) (source.Opener, error) {
	switch {
	case isPostgreSQL(input):
		l.Logf("Using PostgreSQL database at %s as source...", input)
		return pgsource.Opener(input), nil
	case isMongoDB(input):
		l.Logf("Using MongoDB database at %s as source...", input)
		return mongosource.Opener(input), nil
	case strings.HasSuffix(input, ".db"):
		l.Logf("Using SQLite3 file %s as source...", input)
		return sqlite3source.Opener(input), nil
	}
	if input == "" {
		l.Logf("Reading points from STDIN...")
	} else {
		l.Logf("Reading points from %s...", input)
	}
	points, err := csv.ReadFile(input)
	if err != nil {
		return nil, err
	}
	l.Logf("%d points read", len(points))
	return memsource.New(points), nil
}

func (l logger) writer(ctx context.Context, output string) (pointWriter, error) {
	switch {
	case isPostgreSQL(output):
		l.Logf("Opening PostgreSQL database at %s to import points...", output)
		s, err := pgsource.Create(ctx, output)
		if err != nil {
			return nil, err
		}
		return s, nil
	case isMongoDB(output):
		l.Logf("Opening MongoDB database at %s to import points...", output)
		s, err := mongosource.Dial(ctx, output)
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasSuffix(output, ".db"):
		l.Logf("Opening SQLite3 file %s to import points...", output)
		s, err := sqlite3source.Create(ctx, output)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	f := os.Stdout
	if output != "" {
		l.Logf("Creating %s to dump points...", output)
		var err error
		f, err = os.Create(output)
		if err != nil {
			return nil, err
		}
	}
	w, err := csv.NewWriter(f)
	if err != nil {
		return nil, err
	}
	return &csvPointWriter{w, f}, nil
}

func (l logger) store(output string) (ranknear.Store, error) {
	if strings.HasPrefix(output, "redis://") {
		options, prefix, err := redisstore.ParseURL(output)
		if err != nil {
			return nil, err
		}
		l.Logf("Using redis at %s (db %d) as dataset store...", options.Addr, options.DB)
		return redisstore.New(redis.NewClient(options), prefix), nil
	}
	if output == "" {
		return nil, fmt.Errorf("no dataset location given")
	}
	return ranknear.FileStore(output), nil
}

func (cpw *csvPointWriter) Close() error {
	err := cpw.Flush()
	if cpw.f != os.Stdout {
		if cerr := cpw.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
