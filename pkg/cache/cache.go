// Package cache provides content-addressed caching for layout results.
//
// Computing a render model is cheap for small families but grows with graph
// size, and the HTTP API recomputes on every request. Caching keys off the
// snapshot hash plus the layout geometry, so a cache entry is valid exactly
// as long as the underlying data and configuration are unchanged - there is
// no invalidation protocol beyond the TTL.
//
// Three backends are provided:
//   - FileCache: directory of JSON entries for CLI usage
//   - RedisCache: shared cache for multi-instance server deployments
//   - NullCache: no-op for tests and disabled caching
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache stores opaque byte values under string keys with a TTL.
// Implementations must treat a missing key as a miss, not an error.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ModelKeyOpts are the layout parameters that participate in the model
// cache key. Two requests with the same snapshot but different geometry
// must not share an entry.
type ModelKeyOpts struct {
	NodeWidth   float64 `json:"node_width"`
	NodeHeight  float64 `json:"node_height"`
	GapX        float64 `json:"gap_x"`
	LevelHeight float64 `json:"level_height"`
	TopMargin   float64 `json:"top_margin"`
	AxisX       float64 `json:"axis_x"`
}

// ArtifactKeyOpts are the render parameters that participate in the
// artifact cache key.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Engine   string `json:"engine,omitempty"`
	Detailed bool   `json:"detailed"`
}

// Default TTLs per pipeline stage. Entries are content-addressed, so long
// TTLs are safe; the TTL only bounds disk and Redis growth.
const (
	TTLModel    = 24 * time.Hour
	TTLArtifact = 24 * time.Hour
)

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// ModelKey generates a key for a computed render model.
	ModelKey(snapshotHash string, opts ModelKeyOpts) string

	// ArtifactKey generates a key for a rendered artifact (SVG, DOT).
	ArtifactKey(modelHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes the options into the key so that any parameter
// change produces a distinct entry.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// ModelKey generates a key for a computed render model.
func (k *DefaultKeyer) ModelKey(snapshotHash string, opts ModelKeyOpts) string {
	return hashKey("model", snapshotHash, opts)
}

// ArtifactKey generates a key for a rendered artifact.
func (k *DefaultKeyer) ArtifactKey(modelHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", modelHash, opts)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Full SHA-256 (64 hex chars) to prevent collisions
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
