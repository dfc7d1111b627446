package id

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	assert.NotEqual(t, id1.String(), id2.String())
}

func TestTypedPrefixes(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		prefix string
	}{
		{"trace", NewTraceID().String(), TracePrefix},
		{"span", NewSpanID().String(), SpanPrefix},
		{"launch", NewLaunchToken().String(), LaunchPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(tt.value, tt.prefix+"_"))
			assert.True(t, Valid(tt.value, tt.prefix))
			assert.False(t, Valid(tt.value, "other"))
		})
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	assert.False(t, Valid("spn_not-a-ulid", SpanPrefix))
	assert.False(t, Valid("", SpanPrefix))
}

func TestMonotonicOrdering(t *testing.T) {
	gen := NewGenerator()

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = gen.GenerateWithPrefix(SpanPrefix)
	}

	assert.True(t, sort.StringsAreSorted(ids), "ids minted in sequence should sort in sequence")
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	span := NewSpanID()

	ts, err := Timestamp(span.String())
	require.NoError(t, err)
	assert.True(t, ts.After(before))
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v := gen.GenerateWithPrefix(TracePrefix)
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 800)
}
