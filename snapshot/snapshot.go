// Package snapshot exports and imports precompiled Jinx bytecode as a
// single CBOR-encoded bundle, so a host can ship a library's compiled
// form instead of its source text.
package snapshot

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/jboer/jinx/bytecode"
)

// cborEncMode is the package-level canonical encoder: deterministic field
// ordering and minimal-length integer encoding so two runs over the same
// Snapshot value always produce identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is a compiled library's serialized bytecode plus the import
// list it was compiled against and a content hash over the bytecode, so a
// receiving Runtime can verify the bundle was not corrupted or truncated
// in transit before registering it.
type Snapshot struct {
	Library     string   `cbor:"library"`
	Imports     []string `cbor:"imports"`
	Bytecode    []byte   `cbor:"bytecode"`
	ContentHash []byte   `cbor:"content_hash"`
}

func contentHash(code []byte) []byte {
	sum := sha256.Sum256(code)
	return sum[:]
}

// Export builds a Snapshot of chunk's compiled bytecode for library,
// recording imports and computing the content hash fresh.
func Export(library string, chunk *bytecode.Chunk, imports []string) *Snapshot {
	code := chunk.Serialize()
	return &Snapshot{
		Library:     library,
		Imports:     append([]string(nil), imports...),
		Bytecode:    code,
		ContentHash: contentHash(code),
	}
}

// Verify recomputes the content hash over Bytecode and reports whether it
// matches ContentHash.
func (s *Snapshot) Verify() error {
	got := contentHash(s.Bytecode)
	if len(got) != len(s.ContentHash) {
		return fmt.Errorf("snapshot: content hash length mismatch for library %q", s.Library)
	}
	for i := range got {
		if got[i] != s.ContentHash[i] {
			return fmt.Errorf("snapshot: content hash mismatch for library %q", s.Library)
		}
	}
	return nil
}

// Chunk decodes the embedded bytecode back into a runnable Chunk, without
// re-verifying the hash — callers that accept snapshots from an untrusted
// source should call Verify first.
func (s *Snapshot) Chunk() (*bytecode.Chunk, error) {
	return bytecode.Deserialize(s.Bytecode)
}

// Marshal serializes the snapshot to canonical CBOR bytes.
func Marshal(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a Snapshot from CBOR bytes.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return &s, nil
}
