package ranknear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pbanos/ranknear/feature"
	"github.com/pbanos/ranknear/point"
	"github.com/pbanos/ranknear/stats"
)

// Names of the records of a saved dataset, in the order they are saved
const (
	MeanRecord        = "mean category number"
	CoefficientRecord = "category coefficient"
	CountsRecord      = "category counts"
	LabelsRecord      = "labels"
	FeaturesRecord    = "features"
)

// Records lists the record names in the order they are saved
var Records = []string{MeanRecord, CoefficientRecord, CountsRecord, LabelsRecord, FeaturesRecord}

/*
Store represents a place a dataset can be saved to and loaded from as
an ordered list of records.

Save takes the records of a dataset and stores them, replacing any
previously saved ones.

Load returns the saved records in the order they were saved, or an error
wrapping ErrNotFound if there are none.
*/
type Store interface {
	Save(ctx context.Context, records [][]byte) error
	Load(ctx context.Context) ([][]byte, error)
}

/*
FileStore is a Store on the file at the path it holds. Records are saved
one per line, so they must not contain newlines.
*/
type FileStore string

func (f FileStore) Save(ctx context.Context, records [][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := string(f)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("saving dataset to %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	_, err = tmp.Write(bytes.Join(records, []byte("\n")))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("saving dataset to %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving dataset to %s: %w", path, err)
	}
	return nil
}

func (f FileStore) Load(ctx context.Context) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(string(f))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading dataset from %s: %w", string(f), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading dataset from %s: %w", string(f), err)
	}
	records := bytes.Split(data, []byte("\n"))
	if n := len(records); n == len(Records)+1 && len(records[n-1]) == 0 {
		records = records[:n-1]
	}
	return records, nil
}

/*
Save takes a path and saves the dataset to the file on it: five lines
with the JSON encoding of the mean category number matrix, the category
coefficient matrix, the category counts, the labels and the features.
*/
func (d *Dataset) Save(path string) error {
	return d.SaveTo(context.Background(), FileStore(path))
}

/*
Load takes a path to a file written by Save and replaces the contents of
the dataset with the ones in the file.
*/
func (d *Dataset) Load(path string) error {
	return d.LoadFrom(context.Background(), FileStore(path))
}

/*
SaveTo takes a context and a Store and saves the encoded records of the
dataset on it. ErrNotReady is returned for datasets that have not been
prepared or loaded.
*/
func (d *Dataset) SaveTo(ctx context.Context, s Store) error {
	if !d.ready {
		return ErrNotReady
	}
	values := []interface{}{
		d.statistics.MeanMap(),
		d.statistics.CoefficientMap(),
		d.statistics.Counts(),
		d.labels,
		d.features,
	}
	records := make([][]byte, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", Records[i], err)
		}
		records[i] = data
	}
	return s.Save(ctx, records)
}

/*
LoadFrom takes a context and a Store and replaces the contents of the
dataset with the records saved on it. Records are decoded but not
checked for consistency with each other. A *PersistenceError is returned
if records are missing, extra or malformed, and the dataset is left
untouched on any error.
*/
func (d *Dataset) LoadFrom(ctx context.Context, s Store) error {
	records, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if len(records) != len(Records) {
		return &PersistenceError{Err: fmt.Errorf("expected %d records, got %d", len(Records), len(records))}
	}
	var (
		mean, coefficient map[string]map[string]float64
		counts            point.Counts
		labels            []feature.Label
		rows              [][]float64
	)
	targets := []interface{}{&mean, &coefficient, &counts, &labels, &rows}
	for i, target := range targets {
		if len(bytes.TrimSpace(records[i])) == 0 {
			return &PersistenceError{Record: Records[i], Err: errors.New("empty record")}
		}
		if err = json.Unmarshal(records[i], target); err != nil {
			return &PersistenceError{Record: Records[i], Err: err}
		}
	}
	features := make([]feature.Vector, len(rows))
	for i, row := range rows {
		if len(row) != feature.Size {
			return &PersistenceError{Record: FeaturesRecord, Err: fmt.Errorf("feature vector %d has %d values, expected %d", i, len(row), feature.Size)}
		}
		copy(features[i][:], row)
	}
	d.statistics = stats.FromMaps(mean, coefficient, counts)
	d.labels = labels
	d.features = features
	d.ready = true
	return nil
}
