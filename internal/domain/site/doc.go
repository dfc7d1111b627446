// Package site decides which site group a document belongs to and keeps the
// refcounted table of site groups and their processes.
//
// A site key is scheme plus registrable domain (eTLD+1), so
// https://a.example.com and https://b.example.com share a key while
// https://example.co.uk and https://other.co.uk do not. IP literals and
// localhost key on the full host. Origins listed as isolated key on their own
// host, and with site-per-process disabled every other web document shares a
// single default key.
//
// about:, data: and javascript: documents have no site of their own; the
// resolver reports them as inheriting so the caller keeps them in the
// navigating frame's current group.
//
// Each Group owns at most one process. References are held by hosts
// (current, speculative and pending deletion) and by proxies; when the last
// reference is released the process is terminated and the group forgotten.
package site
