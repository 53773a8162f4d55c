// Package hash computes the stable 64-bit identifiers Jinx uses as map
// keys throughout the runtime: RuntimeID values derived from a library
// name plus a property or function shape.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
)

// RuntimeID computes the stable hash of a library name plus an ordered
// list of shape strings (property name, or function signature part
// strings with parameter parts contributing a fixed wildcard token
// instead of their declared local name). Two calls with the same library
// name and the same shape strings always produce the same id; this is the
// sole requirement the registries depend on, since two different shapes
// that happen to collide are rejected at registration rather than
// silently merged.
//
// The hash is SHA-256 over a deterministic, delimiter-safe encoding of the
// inputs, truncated to its low 8 bytes per the specification's 64-bit
// RuntimeID.
func RuntimeID(libraryName string, shape []string) uint64 {
	h := sha256.New()
	writeFramed(h, libraryName)
	for _, s := range shape {
		writeFramed(h, s)
	}
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// writeFramed writes a length-prefixed string into the hasher so that,
// e.g., library "ab" + part "c" can never collide with library "a" + part
// "bc" — both would otherwise serialize to the same concatenated bytes.
func writeFramed(h interface{ Write([]byte) (int, error) }, s string) {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(s)))
	h.Write(lenBuf[:])
	h.Write([]byte(s))
}
