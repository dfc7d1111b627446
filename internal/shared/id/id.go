// Package id provides prefixed ULID generation for the coordinator.
//
// Frame, process and routing identities are small monotonically increasing
// integers owned by the structures that allocate them. ULIDs are used only for
// identifiers that leave the coordinator's memory: trace and span ids in logs,
// and the one-time tokens a remote content process presents when it attaches.
//
// ULIDs sort by creation time, so logs ordered by span id follow the
// navigation timeline.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TraceID identifies one traced operation (a navigation, a crash sweep)
type TraceID string

// SpanID identifies a span inside a trace
type SpanID string

// LaunchToken authenticates a remote content process attaching over IPC
type LaunchToken string

const (
	TracePrefix  = "trc"
	SpanPrefix   = "spn"
	LaunchPrefix = "lch"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand with monotonic
// entropy, so ids minted in the same millisecond still sort in call order.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewTraceID generates a new trace id
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// NewSpanID generates a new span id
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

// NewLaunchToken generates a new attach token
func NewLaunchToken() LaunchToken {
	return LaunchToken(Default().GenerateWithPrefix(LaunchPrefix))
}

func (id TraceID) String() string     { return string(id) }
func (id SpanID) String() string      { return string(id) }
func (id LaunchToken) String() string { return string(id) }

// Valid reports whether s is a well-formed prefixed ULID with the given prefix
func Valid(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return false
	}
	_, err := ulid.ParseStrict(rest)
	return err == nil
}

// Timestamp extracts the creation time of a prefixed ULID
func Timestamp(s string) (time.Time, error) {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
