// Package cache is the content-addressed store for compiled units: a
// SQLite index mapping content hashes to artifacts and metadata, plus an
// in-process memo of loaded programs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding so identical metadata always
// serializes to identical bytes, which the content hash depends on.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Meta is the full set of compile inputs for one unit. Any change to any
// field produces a different key.
type Meta struct {
	Mode        string            `cbor:"1,keyasint"`
	PackageName string            `cbor:"2,keyasint"`
	EntryName   string            `cbor:"3,keyasint"`
	Imports     []string          `cbor:"4,keyasint"`
	Source      string            `cbor:"5,keyasint"`
	Requires    map[string]string `cbor:"6,keyasint"`
}

// Key computes the hex-encoded SHA-256 content hash of the metadata's
// canonical CBOR serialization.
func Key(m Meta) (string, error) {
	data, err := cborEncMode.Marshal(&m)
	if err != nil {
		return "", fmt.Errorf("cache: marshal meta: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// MarshalMeta serializes metadata for storage in the index.
func MarshalMeta(m Meta) ([]byte, error) {
	return cborEncMode.Marshal(&m)
}

// UnmarshalMeta deserializes stored metadata.
func UnmarshalMeta(data []byte) (Meta, error) {
	var m Meta
	if err := cbor.Unmarshal(data, &m); err != nil {
		return Meta{}, fmt.Errorf("cache: unmarshal meta: %w", err)
	}
	return m, nil
}
