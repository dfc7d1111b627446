package types

import (
	"sort"
	"strings"
)

// SandboxFlags is a set of restrictions applied to a document. A set bit means
// the capability is blocked.
type SandboxFlags uint32

const (
	SandboxNavigation SandboxFlags = 1 << iota
	SandboxPlugins
	SandboxOrigin
	SandboxForms
	SandboxScripts
	SandboxTopNavigation
	SandboxPopups
	SandboxAutomaticFeatures
	SandboxPointerLock
	SandboxDocumentDomain
	SandboxOrientationLock
	SandboxPropagatesToAuxiliary
	SandboxModals
	SandboxPresentation
	SandboxTopNavigationByUserActivation
	SandboxDownloads

	SandboxNone SandboxFlags = 0
	SandboxAll  SandboxFlags = SandboxDownloads<<1 - 1
)

// allowTokens maps sandbox attribute keywords to the flag they lift
var allowTokens = map[string]SandboxFlags{
	"allow-forms":                             SandboxForms,
	"allow-modals":                            SandboxModals,
	"allow-orientation-lock":                  SandboxOrientationLock,
	"allow-pointer-lock":                      SandboxPointerLock,
	"allow-popups":                            SandboxPopups,
	"allow-popups-to-escape-sandbox":          SandboxPropagatesToAuxiliary,
	"allow-presentation":                      SandboxPresentation,
	"allow-same-origin":                       SandboxOrigin,
	"allow-scripts":                           SandboxScripts | SandboxAutomaticFeatures,
	"allow-top-navigation":                    SandboxTopNavigation | SandboxTopNavigationByUserActivation,
	"allow-top-navigation-by-user-activation": SandboxTopNavigationByUserActivation,
	"allow-downloads":                         SandboxDownloads,
}

var flagNames = map[SandboxFlags]string{
	SandboxNavigation:                    "navigation",
	SandboxPlugins:                       "plugins",
	SandboxOrigin:                        "origin",
	SandboxForms:                         "forms",
	SandboxScripts:                       "scripts",
	SandboxTopNavigation:                 "top-navigation",
	SandboxPopups:                        "popups",
	SandboxAutomaticFeatures:             "automatic-features",
	SandboxPointerLock:                   "pointer-lock",
	SandboxDocumentDomain:                "document-domain",
	SandboxOrientationLock:               "orientation-lock",
	SandboxPropagatesToAuxiliary:         "propagates-to-auxiliary",
	SandboxModals:                        "modals",
	SandboxPresentation:                  "presentation",
	SandboxTopNavigationByUserActivation: "top-navigation-by-user-activation",
	SandboxDownloads:                     "downloads",
}

// ParseSandbox converts an iframe sandbox attribute value into flags.
// Every restriction is applied except the ones lifted by allow-* tokens;
// unknown tokens are ignored.
func ParseSandbox(attr string) SandboxFlags {
	flags := SandboxAll
	for _, token := range strings.Fields(strings.ToLower(attr)) {
		if lift, ok := allowTokens[token]; ok {
			flags &^= lift
		}
	}
	return flags
}

// Has reports whether every bit of mask is set
func (f SandboxFlags) Has(mask SandboxFlags) bool {
	return f&mask == mask
}

// Union combines two flag sets. Restrictions only accumulate.
func (f SandboxFlags) Union(other SandboxFlags) SandboxFlags {
	return f | other
}

func (f SandboxFlags) String() string {
	if f == SandboxNone {
		return "none"
	}
	var names []string
	for bit, name := range flagNames {
		if f&bit != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}
