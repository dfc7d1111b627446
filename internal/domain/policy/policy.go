package policy

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/shared/types"
)

var (
	// ErrSchemeNotAllowed is returned for navigations to blocked schemes
	ErrSchemeNotAllowed = errors.New("scheme not allowed")
	// ErrUnsupportedFormat is returned by Load for unknown file extensions
	ErrUnsupportedFormat = errors.New("unsupported policy file format")
)

// DefaultPlaceholderURL is loaded in place of a blocked navigation
const DefaultPlaceholderURL = "about:blank#blocked"

// Policy is the navigation allow-list
type Policy struct {
	PlaceholderURL     string              `yaml:"placeholder_url" toml:"placeholder_url" json:"placeholder_url"`
	BlockedSchemes     []string            `yaml:"blocked_schemes" toml:"blocked_schemes" json:"blocked_schemes"`
	BrowserOnlySchemes []string            `yaml:"browser_only_schemes" toml:"browser_only_schemes" json:"browser_only_schemes"`
	RestrictedSchemes  map[string][]string `yaml:"restricted_schemes" toml:"restricted_schemes" json:"restricted_schemes"`
}

// Default returns the built-in policy
func Default() *Policy {
	return &Policy{
		PlaceholderURL:     DefaultPlaceholderURL,
		BlockedSchemes:     []string{"javascript"},
		BrowserOnlySchemes: []string{"chrome", "devtools"},
		RestrictedSchemes: map[string][]string{
			"file": {"file"},
		},
	}
}

// Load reads a policy file and merges it over Default. The format follows
// the extension: .yaml/.yml or .toml. An empty path returns Default.
func Load(path string) (*Policy, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var file Policy
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".toml":
		err = toml.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", path, err)
	}

	p.merge(file)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) merge(o Policy) {
	if o.PlaceholderURL != "" {
		p.PlaceholderURL = o.PlaceholderURL
	}
	if o.BlockedSchemes != nil {
		p.BlockedSchemes = o.BlockedSchemes
	}
	if o.BrowserOnlySchemes != nil {
		p.BrowserOnlySchemes = o.BrowserOnlySchemes
	}
	for scheme, from := range o.RestrictedSchemes {
		p.RestrictedSchemes[strings.ToLower(scheme)] = from
	}
}

// Validate checks that the placeholder itself would be allowed
func (p *Policy) Validate() error {
	u, err := url.Parse(p.PlaceholderURL)
	if err != nil {
		return fmt.Errorf("placeholder url: %w", err)
	}
	if u.Scheme != "about" && u.Scheme != "data" {
		return fmt.Errorf("placeholder url %q must be about: or data:", p.PlaceholderURL)
	}
	return nil
}

// Verdict is the outcome of Check
type Verdict struct {
	// URL is what the frame should load: the target, or the placeholder
	URL *url.URL
	// Rewritten is set when URL is the placeholder
	Rewritten bool
	Reason    string
}

// Check applies the policy to a navigation from a document with origin
// initiator to target.
func (p *Policy) Check(initiator types.Origin, target *url.URL, rendererInitiated bool) (Verdict, error) {
	scheme := strings.ToLower(target.Scheme)

	if slices.Contains(p.BlockedSchemes, scheme) {
		return Verdict{}, fmt.Errorf("%w: %s", ErrSchemeNotAllowed, scheme)
	}
	if !rendererInitiated {
		return Verdict{URL: target}, nil
	}

	if slices.Contains(p.BrowserOnlySchemes, scheme) {
		return p.placeholder("scheme " + scheme + " is browser-only"), nil
	}
	if from, ok := p.RestrictedSchemes[scheme]; ok {
		initiatorScheme := initiator.Scheme
		if initiator.Opaque {
			initiatorScheme = ""
		}
		if !slices.Contains(from, initiatorScheme) {
			return p.placeholder(fmt.Sprintf("scheme %s not reachable from %q", scheme, initiatorScheme)), nil
		}
	}
	return Verdict{URL: target}, nil
}

func (p *Policy) placeholder(reason string) Verdict {
	u, err := url.Parse(p.PlaceholderURL)
	if err != nil {
		u = &url.URL{Scheme: "about", Opaque: "blank", Fragment: "blocked"}
	}
	return Verdict{URL: u, Rewritten: true, Reason: reason}
}
