/*
Package redisstore provides a ranknear.Store backed by a redis DB.

Every save pushes the records into a new list keyed by a random version
and then points the current key of the store to it, so loads always see
a complete dataset. The list of the replaced version is deleted.
*/
package redisstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pbanos/ranknear"
	"gopkg.in/redis.v5"
)

// DefaultPrefix is the key prefix used when none is given
const DefaultPrefix = "ranknear"

type redisStore struct {
	rc     *redis.Client
	prefix string
}

// New builds a ranknear.Store backed by a redis DB using keys with the given prefix
func New(rc *redis.Client, prefix string) ranknear.Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &redisStore{rc, prefix}
}

/*
ParseURL takes a URL like redis://:password@host:port/db?prefix=name and
returns the options to connect to the redis server on it and the key
prefix to use, or an error if the URL is not valid.
*/
func ParseURL(rawURL string) (*redis.Options, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parsing redis URL: %w", err)
	}
	if u.Scheme != "redis" {
		return nil, "", fmt.Errorf("parsing redis URL: invalid scheme %q", u.Scheme)
	}
	options := &redis.Options{Addr: u.Host}
	if u.Port() == "" {
		options.Addr = u.Host + ":6379"
	}
	if u.User != nil {
		options.Password, _ = u.User.Password()
	}
	if db := strings.Trim(u.Path, "/"); db != "" {
		options.DB, err = strconv.Atoi(db)
		if err != nil {
			return nil, "", fmt.Errorf("parsing redis URL: invalid db %q", db)
		}
	}
	return options, u.Query().Get("prefix"), nil
}

func (rs *redisStore) Save(ctx context.Context, records [][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	version := uuid.New().String()
	values := make([]interface{}, len(records))
	for i, r := range records {
		values[i] = r
	}
	if len(values) > 0 {
		if err := rs.rc.RPush(rs.versionKey(version), values...).Err(); err != nil {
			return fmt.Errorf("storing dataset version %s in redis: %v", version, err)
		}
	}
	old, err := rs.rc.GetSet(rs.currentKey(), version).Result()
	if err != nil && err != redis.Nil {
		rs.rc.Del(rs.versionKey(version))
		return fmt.Errorf("switching to dataset version %s in redis: %v", version, err)
	}
	if old != "" && old != version {
		if err = rs.rc.Del(rs.versionKey(old)).Err(); err != nil {
			return fmt.Errorf("deleting dataset version %s from redis: %v", old, err)
		}
	}
	return nil
}

func (rs *redisStore) Load(ctx context.Context) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	version, err := rs.rc.Get(rs.currentKey()).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("retrieving dataset from redis: %w", ranknear.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving current dataset version from redis: %v", err)
	}
	values, err := rs.rc.LRange(rs.versionKey(version), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("retrieving dataset version %s from redis: %v", version, err)
	}
	records := make([][]byte, len(values))
	for i, v := range values {
		records[i] = []byte(v)
	}
	return records, nil
}

func (rs *redisStore) currentKey() string {
	return fmt.Sprintf("%s:current", rs.prefix)
}

func (rs *redisStore) versionKey(version string) string {
	return fmt.Sprintf("%s:dataset:%s", rs.prefix, version)
}
