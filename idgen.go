package reqlog

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator produces correlation ids for requests that arrive without one.
type IDGenerator interface {
	NewID() string
}

// GeneratorFunc adapts a function to IDGenerator.
type GeneratorFunc func() string

func (f GeneratorFunc) NewID() string { return f() }

// UUIDGenerator produces random (version 4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// ULIDGenerator produces lower-case, lexically sortable ULIDs. It is safe
// for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ULIDGenerator) NewID() string {
	g.mu.Lock()
	if g.entropy == nil {
		g.entropy = ulid.Monotonic(rand.Reader, 0)
	}
	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	g.mu.Unlock()
	if err != nil {
		// monotonic entropy overflowed within one millisecond
		id = ulid.Make()
	}
	return strings.ToLower(id.String())
}
