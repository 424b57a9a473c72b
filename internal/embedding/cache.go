package embedding

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// TextEmbedder is the minimal embedding contract consumed across the service.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

const cacheKeyFmt = "emb:%d:%s:%s"

// CachedEmbedder wraps an Embedder with a per-user redis cache. Keys include a
// content hash, so an edited item naturally misses and gets re-embedded.
type CachedEmbedder struct {
	inner TextEmbedder
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedEmbedder(inner TextEmbedder, rdb *redis.Client, ttl time.Duration) *CachedEmbedder {
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &CachedEmbedder{inner: inner, rdb: rdb, ttl: ttl}
}

// EmbedItem embeds an identified item's text, consulting the cache first.
// Cache failures fall through to the inner embedder.
func (c *CachedEmbedder) EmbedItem(ctx context.Context, userID uint, itemID, text string) ([]float32, error) {
	key := cacheKey(userID, itemID, text)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		if vec, err := decodeVector(raw); err == nil {
			return vec, nil
		}
	} else if err != redis.Nil {
		log.Printf("[EmbedCache] read failed for %s: %v", key, err)
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.rdb.Set(ctx, key, encodeVector(vec), c.ttl).Err(); err != nil {
		log.Printf("[EmbedCache] write failed for %s: %v", key, err)
	}
	return vec, nil
}

// Embed satisfies TextEmbedder for texts with no stable identity (queries,
// fresh suggestions). These bypass the cache.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.inner.Embed(ctx, text)
}

func cacheKey(userID uint, itemID, text string) string {
	sum := blake2b.Sum256([]byte(text))
	return fmt.Sprintf(cacheKeyFmt, userID, itemID, hex.EncodeToString(sum[:8]))
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector: %d bytes", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec, nil
}
