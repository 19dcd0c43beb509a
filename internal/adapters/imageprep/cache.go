package imageprep

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/okian/linewatch/pkg/metrics"
)

const (
	defaultCacheSize = 256
	refLength        = 16
)

// ThumbnailCache keeps the most recent thumbnails keyed by content hash.
// Safe for concurrent use.
type ThumbnailCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

type cacheEntry struct {
	ref  string
	data []byte
}

// NewThumbnailCache returns a cache holding up to capacity thumbnails.
// A zero capacity disables caching.
func NewThumbnailCache(capacity int) *ThumbnailCache {
	if capacity < 0 {
		capacity = defaultCacheSize
	}
	return &ThumbnailCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Ref returns the opaque handle for data.
func Ref(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:refLength]
}

// RefFor returns the handle Put would store data under, or "" when caching
// is disabled.
func (c *ThumbnailCache) RefFor(data []byte) string {
	if c.capacity == 0 || len(data) == 0 {
		return ""
	}
	return Ref(data)
}

// Put stores data and returns its handle, or "" when caching is disabled.
func (c *ThumbnailCache) Put(data []byte) string {
	ref := c.RefFor(data)
	if ref == "" {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[ref]; ok {
		c.order.MoveToFront(el)
		return ref
	}
	c.items[ref] = c.order.PushFront(&cacheEntry{ref: ref, data: data})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).ref)
	}
	metrics.UpdateImageCacheSize(c.order.Len())
	return ref
}

// Get returns the thumbnail stored under ref.
func (c *ThumbnailCache) Get(ref string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[ref]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).data, true
}

// Len returns the number of cached thumbnails.
func (c *ThumbnailCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
