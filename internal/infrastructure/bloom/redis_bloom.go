package bloom

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/redis/go-redis/v9"
)

// RedisBloomFilter is a bit array in a single Redis string. It remembers
// processed payment results across instances; a miss is certain, a hit may
// be a false positive and must be confirmed by the caller.
type RedisBloomFilter struct {
	client *redis.Client
	key    string
	m      uint64 // size in bits
	k      uint64 // number of hash functions
}

func NewRedisBloomFilter(client *redis.Client, key string, m, k uint64) *RedisBloomFilter {
	return &RedisBloomFilter{
		client: client,
		key:    key,
		m:      m,
		k:      k,
	}
}

// NewForExpected sizes the filter for n elements at the given false
// positive rate.
func NewForExpected(client *redis.Client, key string, n uint64, falsePositiveRate float64) *RedisBloomFilter {
	m, k := GetOptimalParameters(n, falsePositiveRate)
	return NewRedisBloomFilter(client, key, m, k)
}

func (bf *RedisBloomFilter) Add(ctx context.Context, element string) error {
	pipe := bf.client.Pipeline()
	for _, pos := range bf.positions(element) {
		pipe.SetBit(ctx, bf.key, int64(pos), 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (bf *RedisBloomFilter) Contains(ctx context.Context, element string) (bool, error) {
	positions := bf.positions(element)

	pipe := bf.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(positions))
	for i, pos := range positions {
		cmds[i] = pipe.GetBit(ctx, bf.key, int64(pos))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	for _, cmd := range cmds {
		if cmd.Val() == 0 {
			return false, nil
		}
	}

	return true, nil
}

// Seen and Remember let the filter stand in as the payment result deduper.
func (bf *RedisBloomFilter) Seen(ctx context.Context, key string) (bool, error) {
	return bf.Contains(ctx, key)
}

func (bf *RedisBloomFilter) Remember(ctx context.Context, key string) error {
	return bf.Add(ctx, key)
}

func (bf *RedisBloomFilter) Clear(ctx context.Context) error {
	return bf.client.Del(ctx, bf.key).Err()
}

// positions uses double hashing: h1 + i*h2 mod m.
func (bf *RedisBloomFilter) positions(element string) []uint64 {
	h1 := fnv.New64a()
	h1.Write([]byte(element))
	a := h1.Sum64()

	sum := sha256.Sum256([]byte(element))
	b := binary.BigEndian.Uint64(sum[:8])

	positions := make([]uint64, bf.k)
	for i := uint64(0); i < bf.k; i++ {
		positions[i] = (a + i*b) % bf.m
	}
	return positions
}

func GetOptimalParameters(expectedElements uint64, falsePositiveRate float64) (m, k uint64) {
	mFloat := -float64(expectedElements) * math.Log(falsePositiveRate) / (math.Log(2) * math.Log(2))
	m = uint64(math.Ceil(mFloat))

	kFloat := (float64(m) / float64(expectedElements)) * math.Log(2)
	k = uint64(math.Round(kFloat))

	if k == 0 {
		k = 1
	}

	return m, k
}
