/*
Package mongosource provides a source.Source and source.Writer that use
a MongoDB database as backend.

Points are stored as documents with a GeoJSON location on a 2dsphere
index, so neighbor queries are answered by the database with $nearSphere.
*/
package mongosource

import (
	"context"
	"fmt"
	"time"

	"github.com/pbanos/ranknear/point"
	"github.com/pbanos/ranknear/source"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

const (
	checkinsCollectionName = "checkins"
	dialTimeout            = 10 * time.Second
)

type location struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type document struct {
	ID       int64    `bson:"_id"`
	Loc      location `bson:"loc"`
	Geohash  string   `bson:"geohash"`
	Category string   `bson:"category"`
	Checkins int      `bson:"checkins"`
}

/*
Source is a source.Source and source.Writer on the default database of
a MongoDB session.
*/
type Source struct {
	session *mgo.Session
}

/*
Open takes a MongoDB database session and returns a Source that works
on the default database for that session, or an error if its indexes
cannot be ensured. Closing the Source closes the session.
*/
func Open(ctx context.Context, session *mgo.Session) (*Source, error) {
	ms := &Source{session}
	if err := ms.ensureIndexes(); err != nil {
		return nil, err
	}
	return ms, nil
}

/*
Dial takes a context and a MongoDB URL and returns a Source on a new
session to it.
*/
func Dial(ctx context.Context, url string) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	session, err := mgo.DialWithTimeout(url, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	ms, err := Open(ctx, session)
	if err != nil {
		session.Close()
		return nil, err
	}
	return ms, nil
}

/*
Opener takes a MongoDB URL and returns a source.Opener that dials a new
session on every call.
*/
func Opener(url string) source.Opener {
	return source.OpenerFunc(func(ctx context.Context) (source.Source, error) {
		ms, err := Dial(ctx, url)
		if err != nil {
			return nil, err
		}
		return ms, nil
	})
}

func (ms *Source) Count(ctx context.Context) (int, error) {
	count, err := ms.checkins().Count()
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return count, nil
}

func (ms *Source) Categories(ctx context.Context) (point.Counts, error) {
	iter := ms.checkins().Pipe([]bson.M{{"$group": bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}}).Iter()
	defer iter.Close()
	var doc bson.M
	counts := make(point.Counts)
	for iter.Next(&doc) {
		count, ok := doc["count"].(int)
		if !ok {
			return nil, fmt.Errorf("counting categories: mongo aggregation query returned a %T instead of an int as count", doc["count"])
		}
		counts[fmt.Sprintf("%v", doc["_id"])] = count
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	return counts, nil
}

func (ms *Source) Read(ctx context.Context, offset, limit int) (<-chan point.Point, <-chan error) {
	points := make(chan point.Point)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(points)
		iter := ms.checkins().Find(nil).Sort("_id").Skip(offset).Limit(limit).Iter()
		var doc document
		for iter.Next(&doc) {
			select {
			case <-ctx.Done():
				iter.Close()
				errs <- ctx.Err()
				return
			case points <- doc.point():
			}
		}
		if err := iter.Close(); err != nil {
			errs <- fmt.Errorf("reading points [%d, %d): %w", offset, offset+limit, err)
		}
	}()
	return points, errs
}

func (ms *Source) NeighborsWithin(ctx context.Context, center point.Point, radius float64) ([]point.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := bson.M{
		"loc": bson.M{
			"$nearSphere": bson.M{
				"$geometry":    newLocation(center),
				"$maxDistance": radius,
			},
		},
		"_id": bson.M{"$ne": center.ID},
	}
	var docs []document
	if err := ms.checkins().Find(query).All(&docs); err != nil {
		return nil, fmt.Errorf("querying neighbors of %v: %w", center, err)
	}
	candidates := make([]point.Point, len(docs))
	for i, d := range docs {
		candidates[i] = d.point()
	}
	return source.WithinRadius(center, candidates, radius), nil
}

/*
Write takes a slice of points and inserts them. Points with a zero ID
get the next ID after the greatest one stored, and points without
geohash get it computed. It returns the number of points inserted.
Write must not be called concurrently on the same collection.
*/
func (ms *Source) Write(ctx context.Context, points []point.Point) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	nextID, err := ms.nextID()
	if err != nil {
		return 0, err
	}
	docs := make([]interface{}, 0, len(points))
	for _, p := range points {
		if p.ID == 0 {
			p.ID = nextID
			nextID++
		} else if p.ID >= nextID {
			nextID = p.ID + 1
		}
		if p.Geohash == "" {
			p.Geohash = point.Geohash(p.Lng, p.Lat)
		}
		docs = append(docs, newDocument(p))
	}
	if err = ms.checkins().Insert(docs...); err != nil {
		return 0, fmt.Errorf("inserting points: %w", err)
	}
	return len(points), nil
}

/*
UpdateGeohashes computes and stores the geohash of every point stored
without one. It returns the number of points updated.
*/
func (ms *Source) UpdateGeohashes(ctx context.Context) (int, error) {
	iter := ms.checkins().Find(bson.M{"geohash": bson.M{"$in": []interface{}{"", nil}}}).Iter()
	var pending []document
	var doc document
	for iter.Next(&doc) {
		pending = append(pending, doc)
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("updating geohashes: %w", err)
	}
	for i, d := range pending {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		p := d.point()
		err := ms.checkins().UpdateId(d.ID, bson.M{"$set": bson.M{"geohash": point.Geohash(p.Lng, p.Lat)}})
		if err != nil {
			return i, fmt.Errorf("updating geohash of point %d: %w", d.ID, err)
		}
	}
	return len(pending), nil
}

// Close closes the underlying session
func (ms *Source) Close() error {
	ms.session.Close()
	return nil
}

func (ms *Source) nextID() (int64, error) {
	var last document
	err := ms.checkins().Find(nil).Sort("-_id").One(&last)
	if err == mgo.ErrNotFound {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("finding last point id: %w", err)
	}
	return last.ID + 1, nil
}

func (ms *Source) ensureIndexes() error {
	indexes := []mgo.Index{
		{Key: []string{"$2dsphere:loc"}, Background: true},
		{Key: []string{"category"}, Background: true},
	}
	for _, index := range indexes {
		if err := ms.checkins().EnsureIndex(index); err != nil {
			return fmt.Errorf("ensuring index on %v: %w", index.Key, err)
		}
	}
	return nil
}

func (ms *Source) checkins() *mgo.Collection {
	return ms.session.DB("").C(checkinsCollectionName)
}

func newLocation(p point.Point) location {
	return location{Type: "Point", Coordinates: []float64{p.Lng, p.Lat}}
}

func newDocument(p point.Point) document {
	return document{p.ID, newLocation(p), p.Geohash, p.Category, p.Checkins}
}

func (d document) point() point.Point {
	p := point.Point{ID: d.ID, Geohash: d.Geohash, Category: d.Category, Checkins: d.Checkins}
	if len(d.Loc.Coordinates) == 2 {
		p.Lng, p.Lat = d.Loc.Coordinates[0], d.Loc.Coordinates[1]
	}
	return p
}
