package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// StorageKey joins a namespace and a caller key. An empty namespace leaves the
// key untouched so entries can be shared with writers that use bare keys.
func StorageKey(ns, key string) string {
	if ns == "" {
		return key
	}
	return ns + ":" + key
}

// Redact returns a short, stable digest of k for logs.
func Redact(k string) string {
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}
