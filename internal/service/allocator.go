package service

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rayuela-fp/feoe-api/internal/models"
)

// IdentifierAllocator generates sequential human-readable request identifiers
// of the form {year}-{centerCode}-{typeCode}-{sequence}. The sequence is
// monotonic per (centerCode, year) pair. Allocation reads across all records
// of a center and year, so callers must hold the allocator for the whole
// allocate-and-insert critical section.
type IdentifierAllocator struct {
	mu sync.Mutex
}

// NewIdentifierAllocator constructs an allocator.
func NewIdentifierAllocator() *IdentifierAllocator {
	return &IdentifierAllocator{}
}

// Allocate computes the next identifier from a consistent snapshot of the
// existing records. Ids whose final segment is not numeric contribute zero.
func (a *IdentifierAllocator) Allocate(centerCode, year string, typeCode models.AnnexType, existing []models.Request) string {
	maxSeq := 0
	prefix := year + "-"
	for _, req := range existing {
		if req.CenterCode != centerCode || !strings.HasPrefix(req.ID, prefix) {
			continue
		}
		parts := strings.Split(req.ID, "-")
		seq, err := strconv.Atoi(parts[len(parts)-1])
		if err == nil && seq > maxSeq {
			maxSeq = seq
		}
	}
	return fmt.Sprintf("%s-%s-%s-%d", year, centerCode, typeCode, maxSeq+1)
}

// Lock serialises allocation against concurrent creations.
func (a *IdentifierAllocator) Lock() {
	a.mu.Lock()
}

// Unlock releases the allocation critical section.
func (a *IdentifierAllocator) Unlock() {
	a.mu.Unlock()
}
