// Package cache memoizes expensive per-file probes (currently: the decoded
// stream format of a playlist source) so repeated inserts of the same path
// don't re-open and re-parse the file header, grounded on the teacher's use
// of an in-memory TTL cache for repeated external lookups.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/aviarysound/playlistcore/internal/audiocore"
)

const (
	defaultExpiration = 10 * time.Minute
	cleanupInterval   = 15 * time.Minute
)

// FormatCache memoizes audiocore.StreamInfo by source path.
type FormatCache struct {
	c *gocache.Cache
}

// NewFormatCache constructs an empty cache with the package's default TTL.
func NewFormatCache() *FormatCache {
	return &FormatCache{c: gocache.New(defaultExpiration, cleanupInterval)}
}

// Get returns the cached StreamInfo for path, if present and unexpired.
func (f *FormatCache) Get(path string) (audiocore.StreamInfo, bool) {
	v, ok := f.c.Get(path)
	if !ok {
		return audiocore.StreamInfo{}, false
	}
	info, ok := v.(audiocore.StreamInfo)
	return info, ok
}

// Set stores info for path under the cache's default TTL.
func (f *FormatCache) Set(path string, info audiocore.StreamInfo) {
	f.c.Set(path, info, gocache.DefaultExpiration)
}

// Invalidate removes any cached entry for path, e.g. after the underlying
// file changes on disk.
func (f *FormatCache) Invalidate(path string) {
	f.c.Delete(path)
}

// Len reports the number of cached entries, for diagnostics.
func (f *FormatCache) Len() int {
	return f.c.ItemCount()
}
