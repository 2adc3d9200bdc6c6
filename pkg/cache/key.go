package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "artic"

// Key identifies a cached upstream response.
type Key struct {
	// Path is the upstream resource path (e.g. "/api/v1/artworks").
	Path string

	// Query holds the request query parameters (page, limit, fields).
	Query url.Values
}

// String generates a deterministic key.
// Format: artic:path:query1=val1:query2=val2
//
// Example:
//
//	artic:api/v1/artworks:fields=id,title:page=3
func (k Key) String() string {
	parts := []string{KeyPrefix}

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

	return strings.Join(parts, ":")
}
