package llm

import (
	"container/list"
	"sync"
)

// EmbeddingCache is an LRU cache of embedding vectors keyed by the text
// that produced them. Safe for concurrent use.
type EmbeddingCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type embeddingEntry struct {
	text   string
	vector []float32
}

// NewEmbeddingCache creates a cache holding at most capacity vectors.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity < 1 {
		capacity = 1
	}
	return &EmbeddingCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached vector for text and marks it recently used.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[text]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*embeddingEntry).vector, true
}

// Set stores the vector for text, evicting the least recently used
// entry when the cache is full.
func (c *EmbeddingCache) Set(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[text]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*embeddingEntry).vector = vector
		return
	}

	c.entries[text] = c.order.PushFront(&embeddingEntry{text: text, vector: vector})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*embeddingEntry).text)
	}
}

// Len reports how many vectors are cached.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
