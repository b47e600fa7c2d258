package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix prefixes every key written by the cache.
const KeyPrefix = "cryptomark"

// Key identifies a cached value.
type Key struct {
	// Namespace groups related keys so they can be invalidated together
	// (e.g. "http" for upstream responses, "coins" for API pages).
	Namespace string

	// Path is the request path (e.g. "/coins/markets").
	Path string

	// Query are the query parameters.
	Query url.Values

	// UserID scopes the entry to a user (0 for shared entries).
	UserID int64
}

// String generates a deterministic key string.
// Format: cryptomark:namespace:path:q1=v1:q2=v2:user=42
//
// Example:
//
//	cryptomark:http:coins/markets:page=1:per_page=250:vs_currency=usd
func (k Key) String() string {
	parts := []string{NamespacePrefix(k.Namespace)}

	if path := strings.Trim(k.Path, "/"); path != "" {
		parts = append(parts, path)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(k.Query[name], ",")))
		}
	}

	if k.UserID > 0 {
		parts = append(parts, fmt.Sprintf("user=%d", k.UserID))
	}

	return strings.Join(parts, ":")
}

// NamespacePrefix returns the key prefix shared by every key in namespace.
func NamespacePrefix(namespace string) string {
	if namespace == "" {
		return KeyPrefix
	}
	return KeyPrefix + ":" + namespace
}
