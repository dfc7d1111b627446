package types

import (
	"net/url"
	"strconv"
	"strings"
)

// Origin is a web origin. Opaque origins compare unequal to everything,
// including other opaque origins.
type Origin struct {
	Scheme string `json:"scheme,omitempty"`
	Host   string `json:"host,omitempty"`
	Port   int    `json:"port,omitempty"`
	Opaque bool   `json:"opaque,omitempty"`
}

// OpaqueOrigin returns a fresh opaque origin
func OpaqueOrigin() Origin {
	return Origin{Opaque: true}
}

// OriginFromURL derives the origin of a document loaded from u.
// Schemes without a host (data:, about:, javascript:) produce an opaque origin;
// about:blank callers are expected to inherit instead.
func OriginFromURL(u *url.URL) Origin {
	if u == nil || u.Host == "" {
		if u != nil && u.Scheme == "file" {
			return Origin{Scheme: "file"}
		}
		return OpaqueOrigin()
	}

	scheme := strings.ToLower(u.Scheme)
	port := 0
	if p := u.Port(); p != "" {
		port, _ = strconv.Atoi(p)
	}
	if port == defaultPort(scheme) {
		port = 0
	}

	return Origin{
		Scheme: scheme,
		Host:   strings.ToLower(u.Hostname()),
		Port:   port,
	}
}

// ParseOrigin parses a serialized origin such as "https://a.com:8443"
func ParseOrigin(s string) (Origin, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Origin{}, err
	}
	return OriginFromURL(u), nil
}

// SameOrigin reports whether two origins are same-origin
func (o Origin) SameOrigin(other Origin) bool {
	if o.Opaque || other.Opaque {
		return false
	}
	return o.Scheme == other.Scheme && o.Host == other.Host && o.Port == other.Port
}

// String serializes the origin
func (o Origin) String() string {
	if o.Opaque {
		return "null"
	}
	if o.Host == "" {
		return o.Scheme + "://"
	}
	s := o.Scheme + "://" + o.Host
	if o.Port != 0 {
		s += ":" + strconv.Itoa(o.Port)
	}
	return s
}

func defaultPort(scheme string) int {
	switch scheme {
	case "http", "ws":
		return 80
	case "https", "wss":
		return 443
	}
	return -1
}
