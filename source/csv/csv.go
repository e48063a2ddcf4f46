/*
Package csv reads and writes check-in points as CSV.

The header row names the columns. The lng, lat, category and checkins
columns are required; id and geohash are optional and any other column
is ignored.
*/
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pbanos/ranknear/point"
)

// Header is the header written by Writer
var Header = []string{"id", "lng", "lat", "geohash", "category", "checkins"}

var requiredColumns = []string{"lng", "lat", "category", "checkins"}

/*
Writer writes points as CSV rows on an underlying io.Writer.
*/
type Writer struct {
	count int
	w     *csv.Writer
}

/*
ReadByPoint takes an io.Reader for a CSV stream and a lambda function on
an integer and a point.Point that returns a boolean value and an error.
It parses the points from the reader and calls the lambda with each
point and its index. Processing continues while the lambda returns true
and no error. An error is returned if reading or parsing fails, or if
the lambda returns one.
*/
func ReadByPoint(reader io.Reader, lambda func(int, point.Point) (bool, error)) error {
	r := csv.NewReader(reader)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	columns, err := parseHeader(header)
	if err != nil {
		return err
	}
	for l := 2; ; l++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		p, err := parseRow(row, columns)
		if err != nil {
			return fmt.Errorf("parsing line %d: %w", l, err)
		}
		ok, err := lambda(l-2, p)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return nil
}

/*
Read takes an io.Reader for a CSV stream and returns all the points
parsed from it or an error.
*/
func Read(reader io.Reader) ([]point.Point, error) {
	var points []point.Point
	err := ReadByPoint(reader, func(_ int, p point.Point) (bool, error) {
		points = append(points, p)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

/*
ReadFile takes a filepath, opens the file it points to (os.Stdin if the
path is "") and returns the points parsed from it or an error.
*/
func ReadFile(filepath string) ([]point.Point, error) {
	f := os.Stdin
	if filepath != "" {
		var err error
		f, err = os.Open(filepath)
		if err != nil {
			return nil, fmt.Errorf("reading points: %w", err)
		}
		defer f.Close()
	}
	points, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV file %s: %w", filepath, err)
	}
	return points, nil
}

/*
NewWriter takes an io.Writer and returns a Writer that will write points
on it after writing the header, or an error if the header cannot be
written.
*/
func NewWriter(writer io.Writer) (*Writer, error) {
	w := csv.NewWriter(writer)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}
	return &Writer{w: w}, nil
}

/*
Write takes a slice of points and writes them as rows. It returns the
number of points written.
*/
func (cw *Writer) Write(ctx context.Context, points []point.Point) (int, error) {
	for i, p := range points {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		record := []string{
			strconv.FormatInt(p.ID, 10),
			strconv.FormatFloat(p.Lng, 'f', -1, 64),
			strconv.FormatFloat(p.Lat, 'f', -1, 64),
			p.Geohash,
			p.Category,
			strconv.Itoa(p.Checkins),
		}
		if err := cw.w.Write(record); err != nil {
			return i, fmt.Errorf("writing point %d: %w", p.ID, err)
		}
		cw.count++
	}
	return len(points), nil
}

// Count returns the number of points written
func (cw *Writer) Count() int {
	return cw.count
}

// Flush writes any buffered rows to the underlying io.Writer
func (cw *Writer) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}

func parseHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("parsing header: missing column %s", name)
		}
	}
	return columns, nil
}

func parseRow(row []string, columns map[string]int) (point.Point, error) {
	var p point.Point
	var err error
	if i, ok := columns["id"]; ok && row[i] != "" {
		p.ID, err = strconv.ParseInt(row[i], 10, 64)
		if err != nil {
			return p, fmt.Errorf("converting id %s to int64: %w", row[i], err)
		}
	}
	p.Lng, err = strconv.ParseFloat(row[columns["lng"]], 64)
	if err != nil {
		return p, fmt.Errorf("converting lng %s to float64: %w", row[columns["lng"]], err)
	}
	p.Lat, err = strconv.ParseFloat(row[columns["lat"]], 64)
	if err != nil {
		return p, fmt.Errorf("converting lat %s to float64: %w", row[columns["lat"]], err)
	}
	if i, ok := columns["geohash"]; ok {
		p.Geohash = row[i]
	}
	p.Category = row[columns["category"]]
	p.Checkins, err = strconv.Atoi(row[columns["checkins"]])
	if err != nil {
		return p, fmt.Errorf("converting checkins %s to int: %w", row[columns["checkins"]], err)
	}
	if p.Checkins < 0 {
		return p, fmt.Errorf("negative checkins %d", p.Checkins)
	}
	return p, nil
}
