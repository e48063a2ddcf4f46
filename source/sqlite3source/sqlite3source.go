/*
Package sqlite3source provides a source.Source and source.Writer on an
SQLite3 database file.

Points are stored in a checkins table indexed by geohash. Neighbor
queries fetch the geohash cells covering the search radius by prefix
range and filter the candidates by distance.
*/
package sqlite3source

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"

	// Import of sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/pbanos/ranknear/point"
	"github.com/pbanos/ranknear/source"
)

const (
	createTableStmt = `CREATE TABLE IF NOT EXISTS checkins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		lng REAL NOT NULL,
		lat REAL NOT NULL,
		geohash TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		checkins INTEGER NOT NULL DEFAULT 0)`
	createIndexStmt = `CREATE INDEX IF NOT EXISTS checkins_geohash ON checkins (geohash)`
	selectColumns   = `SELECT id, lng, lat, geohash, category, checkins FROM checkins`
	/*
		MaxPointInsertionsPerStatement is the maximum number of points
		inserted with a single insert command by the Write method.
		Writing more will result in more insertion commands.
	*/
	MaxPointInsertionsPerStatement = 100
)

/*
Source is a source.Source and source.Writer on an SQLite3 database.
*/
type Source struct {
	db *sql.DB
}

/*
Open takes a context and a path to an SQLite3 database file with a
checkins table and returns a Source on it or an error if it cannot be
opened.
*/
func Open(ctx context.Context, path string) (*Source, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite3 database %s: %w", path, err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite3 database %s: %w", path, err)
	}
	return &Source{db}, nil
}

/*
Create takes a context and a path to an SQLite3 database file and returns
a Source on it, creating the file, the checkins table and its indexes if
they do not exist.
*/
func Create(ctx context.Context, path string) (*Source, error) {
	s, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, stmt := range []string{createTableStmt, createIndexStmt} {
		if _, err = s.db.ExecContext(ctx, stmt); err != nil {
			s.Close()
			return nil, fmt.Errorf("ensuring checkins table exists: %w", err)
		}
	}
	return s, nil
}

/*
Opener takes a path to an SQLite3 database file and returns a
source.Opener that opens a new Source on it on every call.
*/
func Opener(path string) source.Opener {
	return source.OpenerFunc(func(ctx context.Context) (source.Source, error) {
		s, err := Open(ctx, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func (s *Source) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkins`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return count, nil
}

func (s *Source) Categories(ctx context.Context) (point.Counts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM checkins GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	defer rows.Close()
	counts := make(point.Counts)
	for rows.Next() {
		var category string
		var count int
		if err = rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("counting categories: %w", err)
		}
		counts[category] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	return counts, nil
}

func (s *Source) Read(ctx context.Context, offset, limit int) (<-chan point.Point, <-chan error) {
	points := make(chan point.Point)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(points)
		rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
		if err != nil {
			errs <- fmt.Errorf("reading points [%d, %d): %w", offset, offset+limit, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			p, err := scanPoint(rows)
			if err != nil {
				errs <- err
				return
			}
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case points <- p:
			}
		}
		if err = rows.Err(); err != nil {
			errs <- fmt.Errorf("reading points [%d, %d): %w", offset, offset+limit, err)
		}
	}()
	return points, errs
}

/*
NeighborsWithin returns the points within radius metres of center.
Points stored without a geohash are never found, so UpdateGeohashes
should be run after loading points by other means than Write.
*/
func (s *Source) NeighborsWithin(ctx context.Context, center point.Point, radius float64) ([]point.Point, error) {
	cells := point.CoveringCells(center.Location(), radius, point.CellPrecision)
	if len(cells) == 0 {
		return nil, nil
	}
	var query bytes.Buffer
	args := make([]interface{}, 0, 2*len(cells))
	query.WriteString(selectColumns)
	query.WriteString(" WHERE ")
	for i, cell := range cells {
		if i > 0 {
			query.WriteString(" OR ")
		}
		query.WriteString("(geohash >= ? AND geohash < ?)")
		args = append(args, cell, cell+"~")
	}
	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying neighbors of %v: %w", center, err)
	}
	defer rows.Close()
	var candidates []point.Point
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("querying neighbors of %v: %w", center, err)
	}
	return source.WithinRadius(center, candidates, radius), nil
}

/*
Write takes a slice of points and inserts them in chunks of
MaxPointInsertionsPerStatement. Points with a zero ID get one assigned
by the database, and points without geohash get it computed. It returns
the number of points inserted.
*/
func (s *Source) Write(ctx context.Context, points []point.Point) (int, error) {
	for start := 0; start < len(points); start += MaxPointInsertionsPerStatement {
		end := start + MaxPointInsertionsPerStatement
		if end > len(points) {
			end = len(points)
		}
		if err := s.insert(ctx, points[start:end]); err != nil {
			return start, fmt.Errorf("inserting points %d to %d: %w", start, end, err)
		}
	}
	return len(points), nil
}

/*
UpdateGeohashes computes and stores the geohash of every point stored
without one. It returns the number of points updated.
*/
func (s *Source) UpdateGeohashes(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("updating geohashes: %w", err)
	}
	defer tx.Rollback()
	rows, err := tx.QueryContext(ctx, `SELECT id, lng, lat FROM checkins WHERE geohash = '' OR geohash IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("updating geohashes: %w", err)
	}
	var pending []point.Point
	for rows.Next() {
		var p point.Point
		if err = rows.Scan(&p.ID, &p.Lng, &p.Lat); err != nil {
			rows.Close()
			return 0, fmt.Errorf("updating geohashes: %w", err)
		}
		pending = append(pending, p)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return 0, fmt.Errorf("updating geohashes: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `UPDATE checkins SET geohash = ? WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("preparing geohash update: %w", err)
	}
	defer stmt.Close()
	for _, p := range pending {
		if _, err = stmt.ExecContext(ctx, point.Geohash(p.Lng, p.Lat), p.ID); err != nil {
			return 0, fmt.Errorf("updating geohash of point %d: %w", p.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing geohash updates: %w", err)
	}
	return len(pending), nil
}

// Close closes the underlying database
func (s *Source) Close() error {
	return s.db.Close()
}

func (s *Source) insert(ctx context.Context, points []point.Point) error {
	var stmt bytes.Buffer
	args := make([]interface{}, 0, 6*len(points))
	stmt.WriteString(`INSERT INTO checkins (id, lng, lat, geohash, category, checkins) VALUES `)
	for i, p := range points {
		if i > 0 {
			stmt.WriteString(", ")
		}
		stmt.WriteString("(?, ?, ?, ?, ?, ?)")
		var id interface{}
		if p.ID != 0 {
			id = p.ID
		}
		gh := p.Geohash
		if gh == "" {
			gh = point.Geohash(p.Lng, p.Lat)
		}
		args = append(args, id, p.Lng, p.Lat, gh, p.Category, p.Checkins)
	}
	_, err := s.db.ExecContext(ctx, stmt.String(), args...)
	return err
}

type scanner interface {
	Scan(...interface{}) error
}

func scanPoint(row scanner) (point.Point, error) {
	var p point.Point
	if err := row.Scan(&p.ID, &p.Lng, &p.Lat, &p.Geohash, &p.Category, &p.Checkins); err != nil {
		return p, fmt.Errorf("scanning point: %w", err)
	}
	return p, nil
}
