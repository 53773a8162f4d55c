package variant

import "strings"

// entry is one key/value pair inside a Collection, kept in insertion order.
type entry struct {
	key   Variant
	value Variant
}

// Collection is Jinx's ordered map: insertion order is preserved and is
// the order `loop over` iterates in. Keys may be any Variant kind except
// KindCollection (collections are not hashable as keys) — Set returns an
// error when asked to key by a collection.
type Collection struct {
	entries []entry
	index   map[string]int // keyed by a canonical string form of the key, for O(1) lookup
}

// NewColl returns a new, empty collection.
func NewColl() *Collection {
	return &Collection{index: make(map[string]int)}
}

// canonicalKey produces a string that uniquely identifies a Variant key
// for the purposes of map lookup: kind-tagged so "1" (string) and 1
// (integer) never collide.
func canonicalKey(k Variant) string {
	return k.kind.String() + ":" + k.AsString()
}

// Set inserts or updates the value for key. If the key is new, it is
// appended at the end, preserving insertion order; if it already exists,
// its value is updated in place without moving its position.
func (c *Collection) Set(key, value Variant) error {
	if key.kind == KindCollection {
		return errKeyIsCollection
	}
	ck := canonicalKey(key)
	if i, ok := c.index[ck]; ok {
		c.entries[i].value = value
		return nil
	}
	c.index[ck] = len(c.entries)
	c.entries = append(c.entries, entry{key: key, value: value})
	return nil
}

// Get returns the value for key and whether it was present.
func (c *Collection) Get(key Variant) (Variant, bool) {
	i, ok := c.index[canonicalKey(key)]
	if !ok {
		return Null, false
	}
	return c.entries[i].value, true
}

// Delete removes key if present, shifting later entries down by one to
// preserve order and keep the index consistent.
func (c *Collection) Delete(key Variant) bool {
	ck := canonicalKey(key)
	i, ok := c.index[ck]
	if !ok {
		return false
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	delete(c.index, ck)
	for k, idx := range c.index {
		if idx > i {
			c.index[k] = idx - 1
		}
	}
	return true
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Keys returns the keys in insertion order.
func (c *Collection) Keys() []Variant {
	keys := make([]Variant, len(c.entries))
	for i, e := range c.entries {
		keys[i] = e.key
	}
	return keys
}

// At returns the key/value pair at a zero-based insertion-order index, for
// `loop over` iteration.
func (c *Collection) At(i int) (Variant, Variant, bool) {
	if i < 0 || i >= len(c.entries) {
		return Null, Null, false
	}
	return c.entries[i].key, c.entries[i].value, true
}

// Append adds value under the integer key equal to the current entry count
// (0 for an empty collection), matching how bracketed list literals
// (`[a, b, c]`) build a collection. If that key is already present, its
// value is replaced instead.
func (c *Collection) Append(value Variant) {
	_ = c.Set(NewInteger(int64(len(c.entries))), value)
}

// Clone performs a deep, value-semantics copy: nested collections are
// cloned recursively so mutating the copy never reaches back into the
// original.
func (c *Collection) Clone() *Collection {
	if c == nil {
		return NewColl()
	}
	clone := &Collection{
		entries: make([]entry, len(c.entries)),
		index:   make(map[string]int, len(c.index)),
	}
	for i, e := range c.entries {
		clone.entries[i] = entry{key: e.key.Clone(), value: e.value.Clone()}
	}
	for k, v := range c.index {
		clone.index[k] = v
	}
	return clone
}

// Equal compares two collections structurally: same length, same ordered
// sequence of key/value pairs.
func (c *Collection) Equal(other *Collection) bool {
	if c.Len() != other.Len() {
		return false
	}
	for i := range c.entries {
		if !c.entries[i].key.Equal(other.entries[i].key) || !c.entries[i].value.Equal(other.entries[i].value) {
			return false
		}
	}
	return true
}

// String renders the collection the way `to string` does: a bracketed,
// comma-separated key:value listing in insertion order.
func (c *Collection) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range c.entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.key.AsString())
		sb.WriteByte(':')
		sb.WriteString(e.value.AsString())
	}
	sb.WriteByte(']')
	return sb.String()
}

var errKeyIsCollection = collectionKeyError{}

type collectionKeyError struct{}

func (collectionKeyError) Error() string {
	return "variant: a collection cannot be used as a collection key"
}
