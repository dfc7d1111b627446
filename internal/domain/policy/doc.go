// Package policy decides whether a navigation may proceed and what it loads
// when it may not.
//
// Which schemes a renderer may navigate to, and from where, is configuration:
// a Policy is loaded from a YAML or TOML file and merged over the defaults.
//
//	placeholder_url: "about:blank#blocked"
//	blocked_schemes: [javascript]
//	browser_only_schemes: [chrome, devtools]
//	restricted_schemes:
//	  file: [file]
//
// Browser-initiated navigations (the embedder typed a URL) are trusted: only
// blocked schemes are refused. Renderer-initiated navigations to a
// browser-only scheme, or to a restricted scheme from an initiator whose
// scheme is not listed, load the placeholder instead. The placeholder has no
// site of its own, so the frame stays in its current site group.
package policy
