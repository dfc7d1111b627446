package site

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestResolverForURL(t *testing.T) {
	r, err := NewResolver(true, []string{"https://accounts.example.com"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		raw     string
		want    string
		inherit bool
	}{
		{"subdomains share a site", "https://mail.a.com/inbox", "https://a.com", false},
		{"multi-label public suffix", "https://shop.example.co.uk/", "https://example.co.uk", false},
		{"scheme is part of the key", "http://a.com/", "http://a.com", false},
		{"port is ignored", "https://a.com:8443/", "https://a.com", false},
		{"ip literal keys on host", "http://127.0.0.1:8080/", "http://127.0.0.1", false},
		{"localhost", "http://localhost:3000/", "http://localhost", false},
		{"file urls share one key", "file:///etc/passwd", "file://", false},
		{"isolated origin", "https://accounts.example.com/login", "https://accounts.example.com", false},
		{"subdomain of isolated origin", "https://x.accounts.example.com/", "https://accounts.example.com", false},
		{"sibling of isolated origin", "https://www.example.com/", "https://example.com", false},
		{"about blank inherits", "about:blank", "", true},
		{"data inherits", "data:text/html,hi", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, inherit := r.ForURL(mustParse(t, tt.raw))
			assert.Equal(t, tt.inherit, inherit)
			if !tt.inherit {
				assert.Equal(t, tt.want, key.String())
			}
		})
	}
}

func TestResolverWithoutSitePerProcess(t *testing.T) {
	r, err := NewResolver(false, []string{"https://bank.com"})
	require.NoError(t, err)

	a, _ := r.ForURL(mustParse(t, "https://a.com/"))
	b, _ := r.ForURL(mustParse(t, "https://b.com/"))
	bank, _ := r.ForURL(mustParse(t, "https://bank.com/"))

	assert.Equal(t, DefaultKey, a)
	assert.Equal(t, a, b)
	assert.Equal(t, "https://bank.com", bank.String())
}

func TestNewResolverRejectsBadIsolatedOrigin(t *testing.T) {
	_, err := NewResolver(true, []string{"data:text/plain,x"})
	assert.Error(t, err)

	r, err := NewResolver(true, []string{"", "  "})
	require.NoError(t, err)
	assert.True(t, r.SitePerProcess())
}
