// Package edges holds the pure edge algorithms: identity, confidence and
// materialization. Nothing here touches storage.
package edges

import (
	"crypto/sha256"
	"encoding/hex"
)

const edgeIDPrefix = "edge_"

// CanonicalPair orders two product ids so that the first is never greater.
func CanonicalPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// ComputeEdgeID is stable for an (edge type, unordered pair).
func ComputeEdgeID(edgeType, a, b string) string {
	a, b = CanonicalPair(a, b)
	sum := sha256.Sum256([]byte(edgeType + ":" + a + ":" + b))
	return edgeIDPrefix + hex.EncodeToString(sum[:])[:16]
}
