package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// keyPrefix namespaces response entries in the backing store.
const keyPrefix = "recsys:response"

// CacheKey identifies a cached response: the correlation id assigned by the
// serving layer plus a fingerprint of the request that produced it.
type CacheKey struct {
	// CorrelationID is the puid of the serving call.
	CorrelationID string

	// Fingerprint is a hex SHA-256 of the request's canonical JSON form.
	Fingerprint string
}

// KeyFor builds the cache key for a request under a correlation id.
// encoding/json writes struct fields in declaration order and map keys
// sorted, so equal requests always produce equal fingerprints.
func KeyFor(correlationID string, request any) (CacheKey, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return CacheKey{}, fmt.Errorf("fingerprint request: %w", err)
	}
	sum := sha256.Sum256(data)
	return CacheKey{
		CorrelationID: correlationID,
		Fingerprint:   hex.EncodeToString(sum[:]),
	}, nil
}

// String generates a deterministic cache key string.
// Format: recsys:response:<puid>:<fingerprint>
//
// Example:
//
//	recsys:response:6f1c0d3e-...:9b74c9897bac770ffc029102a200c5de...
func (k CacheKey) String() string {
	puid := strings.TrimSpace(k.CorrelationID)
	if puid == "" {
		puid = "-"
	}
	return strings.Join([]string{keyPrefix, puid, k.Fingerprint}, ":")
}
