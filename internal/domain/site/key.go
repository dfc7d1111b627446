package site

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

// Key is the affinity key of a site group
type Key struct {
	Scheme string `json:"scheme"`
	Site   string `json:"site,omitempty"`
}

// DefaultKey is shared by all web content when site-per-process is off
var DefaultKey = Key{Scheme: "default"}

// BlankKey holds pages that start on about:blank with no creator to inherit from
var BlankKey = Key{Scheme: "about"}

func (k Key) String() string {
	if k.Site == "" {
		return k.Scheme + "://"
	}
	return k.Scheme + "://" + k.Site
}

// IsZero reports whether k is unset
func (k Key) IsZero() bool {
	return k.Scheme == "" && k.Site == ""
}

// inheritingSchemes have no site of their own
var inheritingSchemes = map[string]bool{
	"about":      true,
	"data":       true,
	"javascript": true,
	"blob":       true,
}

// Resolver maps URLs and origins to site keys
type Resolver struct {
	sitePerProcess bool
	isolated       []types.Origin
}

// NewResolver builds a resolver. isolated lists origins such as
// "https://accounts.example.com" that get a group of their own.
func NewResolver(sitePerProcess bool, isolated []string) (*Resolver, error) {
	r := &Resolver{sitePerProcess: sitePerProcess}
	for _, raw := range isolated {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		origin, err := types.ParseOrigin(raw)
		if err != nil || origin.Opaque || origin.Host == "" {
			return nil, fmt.Errorf("invalid isolated origin %q", raw)
		}
		r.isolated = append(r.isolated, origin)
	}
	return r, nil
}

// SitePerProcess reports whether every site gets its own group
func (r *Resolver) SitePerProcess() bool {
	return r.sitePerProcess
}

// Inherits reports whether documents at u take the group of their creator
func Inherits(u *url.URL) bool {
	return u != nil && inheritingSchemes[strings.ToLower(u.Scheme)]
}

// ForURL returns the key for a document loaded from u. inherit is true for
// URLs that must stay in the navigating frame's current group.
func (r *Resolver) ForURL(u *url.URL) (key Key, inherit bool) {
	if Inherits(u) {
		return Key{}, true
	}
	return r.ForOrigin(types.OriginFromURL(u)), false
}

// ForOrigin returns the key for a committed origin. Opaque origins have no key.
func (r *Resolver) ForOrigin(o types.Origin) Key {
	if o.Opaque {
		return Key{}
	}
	if o.Scheme == "file" {
		return Key{Scheme: "file"}
	}

	for _, iso := range r.isolated {
		if o.Scheme == iso.Scheme && (o.Host == iso.Host || strings.HasSuffix(o.Host, "."+iso.Host)) {
			return Key{Scheme: iso.Scheme, Site: iso.Host}
		}
	}

	if !r.sitePerProcess {
		return DefaultKey
	}
	return Key{Scheme: o.Scheme, Site: registrableDomain(o.Host)}
}

// registrableDomain returns eTLD+1 for host, or host itself for IP
// literals, localhost and hosts that are a public suffix.
func registrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "localhost" || net.ParseIP(strings.Trim(host, "[]")) != nil {
		return host
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}
