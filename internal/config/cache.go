package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware on the
// browse pages. When Enabled is false caching is skipped. MethodsRaw is a
// comma separated list (e.g. "GET,HEAD") parsed into Methods. KeyStrategy
// determines which parts of the request contribute to the cache key; the
// caller's identity is always part of it since pages show who is logged in.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED" env-default:"true"`
	MethodsRaw   string        `env:"CACHE_METHODS" env-default:"GET"`
	TTL          time.Duration `env:"CACHE_TTL" env-default:"30s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" env-default:"route_query"`
	Prefix       string        `env:"CACHE_PREFIX" env-default:"cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" env-default:"1048576"`

	Methods map[string]bool
}

func (c *CacheConfig) normalize() {
	c.Methods = parseMethods(c.MethodsRaw)
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	if c.Prefix == "" {
		c.Prefix = "cache"
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
