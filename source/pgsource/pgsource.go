/*
Package pgsource provides a source.Source and source.Writer on a
PostgreSQL database.

Points are stored in a checkins table indexed by position. Neighbor
queries fetch the points in the bounding box of the search circle,
split in two at the antimeridian, and filter them by distance.
*/
package pgsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	// Import of postgres driver
	_ "github.com/lib/pq"
	"github.com/pbanos/ranknear/point"
	"github.com/pbanos/ranknear/source"
)

var schemaStmts = []string{
	`CREATE TABLE IF NOT EXISTS checkins (
		id BIGSERIAL PRIMARY KEY,
		lng DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		geohash TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		checkins INTEGER NOT NULL DEFAULT 0)`,
	`CREATE INDEX IF NOT EXISTS checkins_lng_lat ON checkins (lng, lat)`,
	`CREATE INDEX IF NOT EXISTS checkins_geohash ON checkins (geohash)`,
}

const (
	selectColumns     = `SELECT id, lng, lat, geohash, category, checkins FROM checkins`
	insertWithID      = `INSERT INTO checkins (id, lng, lat, geohash, category, checkins) VALUES (:id, :lng, :lat, :geohash, :category, :checkins)`
	insertWithoutID   = `INSERT INTO checkins (lng, lat, geohash, category, checkins) VALUES (:lng, :lat, :geohash, :category, :checkins)`
	resetIDSequence   = `SELECT setval(pg_get_serial_sequence('checkins', 'id'), COALESCE(MAX(id), 1)) FROM checkins`
	updateGeohashStmt = `UPDATE checkins SET geohash = ? WHERE id = ?`
)

type row struct {
	ID       int64   `db:"id"`
	Lng      float64 `db:"lng"`
	Lat      float64 `db:"lat"`
	Geohash  string  `db:"geohash"`
	Category string  `db:"category"`
	Checkins int     `db:"checkins"`
}

type categoryCount struct {
	Category string `db:"category"`
	Count    int    `db:"count"`
}

/*
Source is a source.Source and source.Writer on a PostgreSQL database.
*/
type Source struct {
	db *sqlx.DB
}

/*
Open takes a context and a PostgreSQL connection URL and returns a
Source on its database or an error if it cannot connect.
*/
func Open(ctx context.Context, url string) (*Source, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &Source{db}, nil
}

/*
Create takes a context and a PostgreSQL connection URL and returns a
Source on its database, creating the checkins table and its indexes if
they do not exist.
*/
func Create(ctx context.Context, url string) (*Source, error) {
	s, err := Open(ctx, url)
	if err != nil {
		return nil, err
	}
	for _, stmt := range schemaStmts {
		if _, err = s.db.ExecContext(ctx, stmt); err != nil {
			s.Close()
			return nil, fmt.Errorf("ensuring checkins table exists: %w", err)
		}
	}
	return s, nil
}

/*
Opener takes a PostgreSQL connection URL and returns a source.Opener
that opens a new Source on it on every call.
*/
func Opener(url string) source.Opener {
	return source.OpenerFunc(func(ctx context.Context) (source.Source, error) {
		s, err := Open(ctx, url)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func (s *Source) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM checkins`); err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return count, nil
}

func (s *Source) Categories(ctx context.Context) (point.Counts, error) {
	var rows []categoryCount
	err := s.db.SelectContext(ctx, &rows, `SELECT category, COUNT(*) AS count FROM checkins GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	counts := make(point.Counts, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.Count
	}
	return counts, nil
}

func (s *Source) Read(ctx context.Context, offset, limit int) (<-chan point.Point, <-chan error) {
	points := make(chan point.Point)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(points)
		rows, err := s.db.QueryxContext(ctx, s.db.Rebind(selectColumns+` ORDER BY id LIMIT ? OFFSET ?`), limit, offset)
		if err != nil {
			errs <- fmt.Errorf("reading points [%d, %d): %w", offset, offset+limit, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			var r row
			if err = rows.StructScan(&r); err != nil {
				errs <- fmt.Errorf("scanning point: %w", err)
				return
			}
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case points <- r.point():
			}
		}
		if err = rows.Err(); err != nil {
			errs <- fmt.Errorf("reading points [%d, %d): %w", offset, offset+limit, err)
		}
	}()
	return points, errs
}

func (s *Source) NeighborsWithin(ctx context.Context, center point.Point, radius float64) ([]point.Point, error) {
	b, ok := point.SearchBox(center.Location(), radius)
	if !ok {
		return nil, nil
	}
	var lngs []string
	args := []interface{}{b.Min.Lat(), b.Max.Lat()}
	for _, r := range point.LngRanges(b) {
		lngs = append(lngs, "lng BETWEEN ? AND ?")
		args = append(args, r[0], r[1])
	}
	query := s.db.Rebind(selectColumns + ` WHERE lat BETWEEN ? AND ? AND (` + strings.Join(lngs, " OR ") + `)`)
	var rows []row
	err := s.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying neighbors of %v: %w", center, err)
	}
	candidates := make([]point.Point, len(rows))
	for i, r := range rows {
		candidates[i] = r.point()
	}
	return source.WithinRadius(center, candidates, radius), nil
}

/*
Write takes a slice of points and inserts them in a single transaction.
Points with a zero ID get one assigned by the database, and points
without geohash get it computed. It returns the number of points
inserted.
*/
func (s *Source) Write(ctx context.Context, points []point.Point) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("writing points: %w", err)
	}
	defer tx.Rollback()
	withID, err := tx.PrepareNamedContext(ctx, insertWithID)
	if err != nil {
		return 0, fmt.Errorf("preparing point insertion: %w", err)
	}
	defer withID.Close()
	withoutID, err := tx.PrepareNamedContext(ctx, insertWithoutID)
	if err != nil {
		return 0, fmt.Errorf("preparing point insertion: %w", err)
	}
	defer withoutID.Close()
	var explicitIDs bool
	for i, p := range points {
		r := newRow(p)
		stmt := withoutID
		if r.ID != 0 {
			stmt = withID
			explicitIDs = true
		}
		if _, err = stmt.ExecContext(ctx, r); err != nil {
			return 0, fmt.Errorf("inserting point %d: %w", i, err)
		}
	}
	if explicitIDs {
		if _, err = tx.ExecContext(ctx, resetIDSequence); err != nil {
			return 0, fmt.Errorf("resetting id sequence: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing points: %w", err)
	}
	return len(points), nil
}

/*
UpdateGeohashes computes and stores the geohash of every point stored
without one. It returns the number of points updated.
*/
func (s *Source) UpdateGeohashes(ctx context.Context) (int, error) {
	var pending []row
	err := s.db.SelectContext(ctx, &pending, selectColumns+` WHERE geohash = ''`)
	if err != nil {
		return 0, fmt.Errorf("updating geohashes: %w", err)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("updating geohashes: %w", err)
	}
	defer tx.Rollback()
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(updateGeohashStmt))
	if err != nil {
		return 0, fmt.Errorf("preparing geohash update: %w", err)
	}
	defer stmt.Close()
	for _, r := range pending {
		if _, err = stmt.ExecContext(ctx, point.Geohash(r.Lng, r.Lat), r.ID); err != nil {
			return 0, fmt.Errorf("updating geohash of point %d: %w", r.ID, err)
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

func newRow(p point.Point) row {
	gh := p.Geohash
	if gh == "" {
		gh = point.Geohash(p.Lng, p.Lat)
	}
	return row{p.ID, p.Lng, p.Lat, gh, p.Category, p.Checkins}
}

func (r row) point() point.Point {
	return point.Point{ID: r.ID, Lng: r.Lng, Lat: r.Lat, Geohash: r.Geohash, Category: r.Category, Checkins: r.Checkins}
}
