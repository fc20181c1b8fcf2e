package redis

import "fmt"

// Key construction helpers

// CachePrefix namespaces every gammad cache entry
const CachePrefix = "gammad:cache:"

// CacheKey returns the key for a cached record
// Pattern: gammad:cache:{name}
func CacheKey(name string) string {
	return fmt.Sprintf("%s%s", CachePrefix, name)
}

// CachePattern matches every cached record
func CachePattern() string {
	return CachePrefix + "*"
}
