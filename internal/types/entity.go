package types

import (
	"net/url"
	"strings"

	"github.com/dreamware/torusdb/internal/terrors"
)

// EntityId is an absolute URL acting as a globally unique node identifier.
// It is never a colon-prefixed short form: the full URL is the identity.
type EntityId string

// ParseEntityId validates that s is an absolute URL and returns it as an
// EntityId. An absolute URL has a scheme and a host; "user:123" is
// rejected (it looks like a short form, not a URL), as is a relative path.
func ParseEntityId(s string) (EntityId, error) {
	if s == "" {
		return "", terrors.NewValidation("entity_id", "empty")
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", terrors.NewValidation("entity_id", "not a valid URL: "+err.Error())
	}
	if !u.IsAbs() || u.Host == "" {
		return "", terrors.NewValidation("entity_id", "must be an absolute URL")
	}
	return EntityId(s), nil
}

// String returns the entity id as its raw URL string.
func (e EntityId) String() string { return string(e) }

// NamespaceOf returns the namespace of an EntityId: the URL's origin plus
// path prefix up to (but excluding) the final path segment, which is
// treated as the local id. Both the triple store (per-shard namespace
// tagging) and the CDC coordinator (namespace-grouped flush) rely on this
// single definition so that a triple and the chunk it ends up in always
// agree on which namespace it belongs to.
//
// "https://example.org/people/alice" -> "https://example.org/people"
// "https://example.org/alice"        -> "https://example.org"
func NamespaceOf(id EntityId) string {
	s := string(id)
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	origin := u.Scheme + "://" + u.Host
	path := strings.TrimSuffix(u.Path, "/")
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return origin
	}
	return origin + path[:idx]
}

// SortKey derives the prefix-compression sort key used by GraphCol chunks:
// reversed hostname segments followed by path segments, comma-separated.
// "https://example.org/a/b" -> "org,example,a,b"
func SortKey(id EntityId) string {
	s := string(id)
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	hostParts := strings.Split(u.Host, ".")
	reversed := make([]string, len(hostParts))
	for i, p := range hostParts {
		reversed[len(hostParts)-1-i] = p
	}
	pathParts := strings.Split(strings.Trim(u.Path, "/"), "/")
	all := append(reversed, pathParts...)
	return strings.Join(all, ",")
}
