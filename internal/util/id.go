// Package util provides identifier helpers for larder.
package util

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProvisionalPrefix marks ids generated locally for rows that have never
// been persisted.
const ProvisionalPrefix = "new-"

// IDGenerator provides thread-safe UUIDv7 generation with monotonic timestamps.
type IDGenerator struct {
	mu       sync.Mutex
	lastTime int64
	counter  uint16
}

// NewIDGenerator creates a new ID generator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// NewID generates a new UUIDv7 identifier from this generator.
// UUIDv7 keeps ids time-ordered for index locality.
func (g *IDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == g.lastTime {
		g.counter++
		if g.counter == 0 {
			// Counter overflow, wait for next millisecond
			for now == g.lastTime {
				time.Sleep(time.Microsecond * 100)
				now = time.Now().UnixMilli()
			}
			g.lastTime = now
		}
	} else {
		g.lastTime = now
		g.counter = 0
	}

	return generateUUIDv7(now, g.counter)
}

var defaultGenerator = NewIDGenerator()

// NewID generates a persisted identifier using the package generator.
func NewID() string {
	return defaultGenerator.NewID()
}

// generateUUIDv7 creates a UUIDv7 from a timestamp and counter.
func generateUUIDv7(unixMilli int64, counter uint16) string {
	var id [16]byte

	// First 48 bits: Unix timestamp in milliseconds (big endian)
	binary.BigEndian.PutUint32(id[0:4], uint32(unixMilli>>16))
	binary.BigEndian.PutUint16(id[4:6], uint16(unixMilli))

	id[6] = 0x70 | (byte(counter>>8) & 0x0F)
	id[7] = byte(counter)

	var randomBytes [8]byte
	rand.Read(randomBytes[:])
	copy(id[8:], randomBytes[:])
	id[8] = (id[8] & 0x3F) | 0x80 // RFC 4122 variant

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		binary.BigEndian.Uint32(id[0:4]),
		binary.BigEndian.Uint16(id[4:6]),
		binary.BigEndian.Uint16(id[6:8]),
		binary.BigEndian.Uint16(id[8:10]),
		id[10:16],
	)
}

// NewProvisionalID returns an id for a row that exists only in the
// working copy. It never collides with a persisted id.
func NewProvisionalID() string {
	return ProvisionalPrefix + uuid.New().String()
}

// IsProvisional reports whether id was produced by NewProvisionalID.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// ParseID validates and normalizes a persisted UUID string.
func ParseID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid ID format: %w", err)
	}
	return id.String(), nil
}

// IsValidID checks if a string is a valid persisted id.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
