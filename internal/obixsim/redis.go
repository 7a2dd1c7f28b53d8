package obixsim

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisStore implements Store backed by a Redis instance. Each point is a
// JSON encoded Record under keyPrefix+path; indexKey lists every path.
type redisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	indexKey  string
}

const (
	redisKeyPrefix = "obix:point:"
	redisIndexKey  = "obix:points"
)

// NewRedisStore connects to the given Redis URL and returns a Store.
func NewRedisStore(ctx context.Context, addr string) (Store, error) {
	opts, err := parseRedisURL(addr)
	if err != nil {
		return nil, err
	}
	c := redis.NewUniversalClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &redisStore{client: c, keyPrefix: redisKeyPrefix, indexKey: redisIndexKey}, nil
}

// parseRedisURL parses addr into UniversalOptions supporting single, cluster,
// and sentinel Redis deployments. If no scheme is present, addr is treated as
// a plain host:port string.
func parseRedisURL(addr string) (*redis.UniversalOptions, error) {
	if !strings.Contains(addr, "://") {
		return &redis.UniversalOptions{Addrs: []string{addr}}, nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}

	opts := &redis.UniversalOptions{}
	if u.User != nil {
		opts.Username = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			opts.Password = pw
		}
	}
	opts.Addrs = strings.Split(u.Host, ",")

	q := u.Query()
	dbFromQuery := func() error {
		if s := q.Get("db"); s != "" {
			db, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("redis: invalid db: %v", err)
			}
			opts.DB = db
		}
		return nil
	}
	switch u.Scheme {
	case "redis", "rediss":
		if p := strings.TrimPrefix(u.Path, "/"); p != "" {
			db, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("redis: invalid db: %v", err)
			}
			opts.DB = db
		} else if err := dbFromQuery(); err != nil {
			return nil, err
		}
		if u.Scheme == "rediss" {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	case "redis-sentinel", "rediss-sentinel":
		opts.MasterName = strings.TrimPrefix(u.Path, "/")
		if err := dbFromQuery(); err != nil {
			return nil, err
		}
		opts.SentinelUsername = q.Get("sentinel_username")
		opts.SentinelPassword = q.Get("sentinel_password")
		if u.Scheme == "rediss-sentinel" {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	default:
		return nil, fmt.Errorf("redis: invalid URL scheme: %s", u.Scheme)
	}
	return opts, nil
}

func (r *redisStore) Get(ctx context.Context, path string) (Record, bool, error) {
	b, err := r.client.Get(ctx, r.keyPrefix+normalizePath(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (r *redisStore) Put(ctx context.Context, rec Record) error {
	rec.Path = normalizePath(rec.Path)
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.keyPrefix+rec.Path, b, 0)
		p.SAdd(ctx, r.indexKey, rec.Path)
		return nil
	})
	return err
}

func (r *redisStore) List(ctx context.Context) ([]string, error) {
	paths, err := r.client.SMembers(ctx, r.indexKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
