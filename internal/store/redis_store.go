package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	beererrors "github.com/abgdnv/beerstock/internal/errors"
	"github.com/redis/go-redis/v9"
)

const (
	beerKeyPrefix = "beerstock:beer:"
	beerIDsKey    = "beerstock:beers:ids"
	beerNamesKey  = "beerstock:beers:names"
	beerSeqKey    = "beerstock:beers:seq"
)

// script results
const (
	resNotFound   = -1
	resVersion    = 0
	resNameExists = -2
)

// KEYS: names, seq, ids. ARGV: key prefix, name, brand, max, quantity, type.
var insertBeerScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[2]) == 1 then
	return -2
end
local id = redis.call('INCR', KEYS[2])
redis.call('HSET', ARGV[1] .. id,
	'id', id, 'name', ARGV[2], 'brand', ARGV[3], 'max', ARGV[4],
	'quantity', ARGV[5], 'type', ARGV[6], 'version', 1)
redis.call('ZADD', KEYS[3], id, id)
redis.call('HSET', KEYS[1], ARGV[2], id)
return id
`)

// KEYS: beer, names. ARGV: id, version, name, brand, max, quantity, type.
var updateBeerScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('HGET', KEYS[1], 'version') ~= ARGV[2] then
	return 0
end
local oldName = redis.call('HGET', KEYS[1], 'name')
if oldName ~= ARGV[3] then
	if redis.call('HEXISTS', KEYS[2], ARGV[3]) == 1 then
		return -2
	end
	redis.call('HDEL', KEYS[2], oldName)
	redis.call('HSET', KEYS[2], ARGV[3], ARGV[1])
end
redis.call('HSET', KEYS[1],
	'name', ARGV[3], 'brand', ARGV[4], 'max', ARGV[5],
	'quantity', ARGV[6], 'type', ARGV[7])
return redis.call('HINCRBY', KEYS[1], 'version', 1)
`)

// KEYS: beer, names, ids. ARGV: id.
var deleteBeerScript = redis.NewScript(`
local name = redis.call('HGET', KEYS[1], 'name')
if not name then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('HDEL', KEYS[2], name)
redis.call('ZREM', KEYS[3], ARGV[1])
return 1
`)

// redisBeer is the hash layout of a beer.
type redisBeer struct {
	ID       int64  `redis:"id"`
	Name     string `redis:"name"`
	Brand    string `redis:"brand"`
	Max      int    `redis:"max"`
	Quantity int    `redis:"quantity"`
	Type     string `redis:"type"`
	Version  int32  `redis:"version"`
}

func (r *redisBeer) toBeer() *Beer {
	return &Beer{
		ID:       r.ID,
		Name:     r.Name,
		Brand:    r.Brand,
		Max:      r.Max,
		Quantity: r.Quantity,
		Type:     BeerType(r.Type),
		Version:  r.Version,
	}
}

func beerKey(id int64) string {
	return beerKeyPrefix + strconv.FormatInt(id, 10)
}

// RedisStore implements BeerStore with one redis hash per beer, a name index and an id sorted set.
// Every write runs as a single Lua script so checks and writes are atomic.
// The insert script builds the new beer key from the sequence inside the script, a key not declared
// in KEYS, so the store needs a single Redis node and does not run on Redis Cluster.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a BeerStore backed by the given redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func scanRedisBeer(cmd *redis.MapStringStringCmd) (*Beer, error) {
	if len(cmd.Val()) == 0 {
		return nil, beererrors.ErrBeerNotFound
	}
	var rb redisBeer
	if err := cmd.Scan(&rb); err != nil {
		return nil, fmt.Errorf("failed to decode beer: %w", err)
	}
	return rb.toBeer(), nil
}

// FindByID retrieves a beer by its unique identifier.
func (s *RedisStore) FindByID(ctx context.Context, id int64) (*Beer, error) {
	cmd := s.client.HGetAll(ctx, beerKey(id))
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("failed to find beer by ID: %w", err)
	}
	return scanRedisBeer(cmd)
}

// FindByName retrieves a beer by its name through the name index.
func (s *RedisStore) FindByName(ctx context.Context, name string) (*Beer, error) {
	id, err := s.client.HGet(ctx, beerNamesKey, name).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, beererrors.ErrBeerNotFound
		}
		return nil, fmt.Errorf("failed to find beer by name: %w", err)
	}
	return s.FindByID(ctx, id)
}

// FindAll retrieves all beers ordered by ID.
func (s *RedisStore) FindAll(ctx context.Context) ([]Beer, error) {
	ids, err := s.client.ZRange(ctx, beerIDsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to find all beers: %w", err)
	}
	beers := make([]Beer, 0, len(ids))
	if len(ids) == 0 {
		return beers, nil
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			cmds = append(cmds, pipe.HGetAll(ctx, beerKeyPrefix+id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find all beers: %w", err)
	}
	for _, cmd := range cmds {
		beer, err := scanRedisBeer(cmd)
		if errors.Is(err, beererrors.ErrBeerNotFound) {
			// deleted between ZRANGE and HGETALL
			continue
		}
		if err != nil {
			return nil, err
		}
		beers = append(beers, *beer)
	}
	return beers, nil
}

// Save inserts a new beer when ID is zero, otherwise updates the beer with the matching ID and version.
func (s *RedisStore) Save(ctx context.Context, beer Beer) (*Beer, error) {
	if beer.ID == 0 {
		id, err := insertBeerScript.Run(ctx, s.client,
			[]string{beerNamesKey, beerSeqKey, beerIDsKey},
			beerKeyPrefix, beer.Name, beer.Brand, beer.Max, beer.Quantity, string(beer.Type)).Int64()
		if err != nil {
			return nil, fmt.Errorf("failed to create beer: %w", err)
		}
		if id == resNameExists {
			return nil, beererrors.ErrBeerAlreadyRegistered
		}
		beer.ID = id
		beer.Version = 1
		return &beer, nil
	}

	version, err := updateBeerScript.Run(ctx, s.client,
		[]string{beerKey(beer.ID), beerNamesKey},
		beer.ID, beer.Version, beer.Name, beer.Brand, beer.Max, beer.Quantity, string(beer.Type)).Int64()
	if err != nil {
		return nil, fmt.Errorf("failed to update beer: %w", err)
	}
	switch version {
	case resNotFound:
		return nil, beererrors.ErrBeerNotFound
	case resVersion:
		return nil, beererrors.ErrOptimisticLock
	case resNameExists:
		return nil, beererrors.ErrBeerAlreadyRegistered
	}
	beer.Version = int32(version)
	return &beer, nil
}

// DeleteByID removes a beer and its index entries.
func (s *RedisStore) DeleteByID(ctx context.Context, id int64) error {
	deleted, err := deleteBeerScript.Run(ctx, s.client,
		[]string{beerKey(id), beerNamesKey, beerIDsKey},
		id).Int64()
	if err != nil {
		return fmt.Errorf("failed to delete beer: %w", err)
	}
	if deleted == 0 {
		return beererrors.ErrBeerNotFound
	}
	return nil
}
