// Package cache provides layered caching for embedding vectors. The same
// model and text always produce the same vector, so cache hits are always
// safe to serve.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the common interface for the memory, disk and layered caches
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from the embedding model and the input text.
// The model is part of the key: the same text embedded by a different
// model is a different vector.
func Key(model, text string) string {
	hash := sha256.Sum256([]byte(model + "\x00" + text))
	return "medrag:v1:" + hex.EncodeToString(hash[:])
}
