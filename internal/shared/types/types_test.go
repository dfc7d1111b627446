package types

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectContains(t *testing.T) {
	r := NewRect(100, 50, 400, 300)

	assert.True(t, r.Contains(Point{X: 100, Y: 50}))
	assert.True(t, r.Contains(Point{X: 499, Y: 349}))
	assert.False(t, r.Contains(Point{X: 500, Y: 100}), "right edge is exclusive")
	assert.False(t, r.Contains(Point{X: 99, Y: 100}))
	assert.False(t, NewRect(0, 0, 0, 10).Contains(Point{}))
}

func TestPointToChildSpace(t *testing.T) {
	p := Point{X: 300, Y: 250}.Sub(Point{X: 100, Y: 50}).Scale(2)
	assert.Equal(t, Point{X: 100, Y: 100}, p)
	assert.Equal(t, Point{X: 3, Y: 4}, Point{X: 3, Y: 4}.Scale(0))
}

func TestOriginFromURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://A.com/path", "https://a.com"},
		{"https://a.com:443/", "https://a.com"},
		{"http://a.com:8080/", "http://a.com:8080"},
		{"file:///tmp/x.html", "file://"},
		{"data:text/html,hi", "null"},
		{"about:blank", "null"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, err := url.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, OriginFromURL(u).String())
		})
	}
}

func TestSameOrigin(t *testing.T) {
	a, _ := ParseOrigin("https://a.com")
	a2, _ := ParseOrigin("https://a.com:443/other")
	b, _ := ParseOrigin("https://b.com")

	assert.True(t, a.SameOrigin(a2))
	assert.False(t, a.SameOrigin(b))

	opaque := OpaqueOrigin()
	assert.False(t, opaque.SameOrigin(opaque))
}

func TestParseSandbox(t *testing.T) {
	flags := ParseSandbox("")
	assert.Equal(t, SandboxAll, flags)

	flags = ParseSandbox("allow-scripts ALLOW-POPUPS bogus-token")
	assert.False(t, flags.Has(SandboxScripts))
	assert.False(t, flags.Has(SandboxPopups))
	assert.True(t, flags.Has(SandboxForms|SandboxOrigin))
}

func TestSandboxUnionAndString(t *testing.T) {
	f := SandboxScripts.Union(SandboxForms)
	assert.True(t, f.Has(SandboxScripts))
	assert.True(t, f.Has(SandboxForms))
	assert.Equal(t, "forms|scripts", f.String())
	assert.Equal(t, "none", SandboxNone.String())
}

func TestSurfaceIDOrdering(t *testing.T) {
	var zero SurfaceID
	first := NewSurfaceID(7, 1)
	second := NewSurfaceID(7, 2)
	other := NewSurfaceID(8, 5)

	assert.False(t, zero.IsValid())
	assert.True(t, first.IsValid())
	assert.True(t, first.NewerThan(zero))
	assert.True(t, second.NewerThan(first))
	assert.False(t, first.NewerThan(second))
	assert.False(t, other.NewerThan(second), "different sinks are not ordered")
	assert.NotEqual(t, uuid.Nil, first.Token)
}

func TestInputEventIsMouse(t *testing.T) {
	assert.True(t, InputEvent{Type: MouseDown}.IsMouse())
	assert.True(t, InputEvent{Type: MouseWheel}.IsMouse())
	assert.False(t, InputEvent{Type: KeyDown}.IsMouse())
}
