package googlephotos

import (
	"context"
	"fmt"
	"sync"
)

// cursorCache maps 1-based page numbers to the page tokens the API hands
// out, per listing. Page 1 always has the empty token.
type cursorCache struct {
	mu     sync.Mutex
	tokens map[string]map[int]string
}

func newCursorCache() *cursorCache {
	return &cursorCache{tokens: make(map[string]map[int]string)}
}

func (c *cursorCache) get(key string, page int) (string, bool) {
	if page == 1 {
		return "", true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	token, ok := c.tokens[key][page]
	return token, ok
}

func (c *cursorCache) set(key string, page int, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens[key] == nil {
		c.tokens[key] = make(map[int]string)
	}
	c.tokens[key][page] = token
}

// fetchPage calls fetch for the requested page. Pages whose token is not
// cached yet are reached by walking forward from the nearest known page.
// It reports false when the listing ends before the requested page.
func (c *cursorCache) fetchPage(ctx context.Context, key string, page int, fetch func(context.Context, string) (string, error)) (bool, error) {
	if page < 1 {
		return false, fmt.Errorf("invalid page %d", page)
	}

	start := page
	for ; start > 1; start-- {
		if _, ok := c.get(key, start); ok {
			break
		}
	}

	for current := start; ; current++ {
		token, _ := c.get(key, current)
		next, err := fetch(ctx, token)
		if err != nil {
			return false, err
		}
		if next != "" {
			c.set(key, current+1, next)
		}
		if current == page {
			return true, nil
		}
		if next == "" {
			return false, nil
		}
	}
}
