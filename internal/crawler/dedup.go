package crawler

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint digests normalized text: case-folded and whitespace-collapsed,
// so formatting differences do not defeat duplicate detection.
func Fingerprint(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// DefaultDedupCapacity bounds the fingerprint ledger.
const DefaultDedupCapacity = 10000

// Deduper is the bounded content-fingerprint ledger. It lives for the
// crawler instance, spanning runs, and is driven by one sequential loop.
//
// Eviction at capacity removes an arbitrary member, not the least recently
// used one. The ledger is a size bound, not a recency cache; an occasional
// false negative after eviction only costs a re-processed page.
type Deduper struct {
	capacity int
	seen     map[string]struct{}
}

// NewDeduper creates a ledger holding at most capacity fingerprints.
func NewDeduper(capacity int) *Deduper {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &Deduper{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// CheckAndRecord reports whether the text has been seen before, recording
// its fingerprint if not. True means duplicate: drop the page.
func (d *Deduper) CheckAndRecord(text string) bool {
	fp := Fingerprint(text)
	if _, ok := d.seen[fp]; ok {
		return true
	}
	if len(d.seen) >= d.capacity {
		for k := range d.seen {
			delete(d.seen, k)
			break
		}
	}
	d.seen[fp] = struct{}{}
	return false
}

// Len returns the current ledger size.
func (d *Deduper) Len() int {
	return len(d.seen)
}
