package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type memEntry struct {
	value     string
	expiresAt time.Time // zero = sem expiração
}

// MemoryClient implementa Client em memória de processo. Usado no modo
// STORE_DRIVER=memory e nos testes.
type MemoryClient struct {
	mu  sync.Mutex
	m   map[string]memEntry
	now func() time.Time
}

// NewMemoryClient cria um cache em memória vazio.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{m: make(map[string]memEntry), now: time.Now}
}

func (c *MemoryClient) lookup(key string) (memEntry, bool) {
	e, ok := c.m[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.m, key)
		return memEntry{}, false
	}
	return e, true
}

func (c *MemoryClient) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key)
	if !ok {
		return "", ErrCacheMiss
	}
	return e.value, nil
}

func (c *MemoryClient) GetInt(ctx context.Context, key string) (int, error) {
	s, err := c.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func (c *MemoryClient) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}
	e := memEntry{value: s}
	if expiration > 0 {
		e.expiresAt = c.now().Add(expiration)
	}
	c.mu.Lock()
	c.m[key] = e
	c.mu.Unlock()
	return nil
}

// Incr segue a semântica do INCR do Redis: chave ausente começa em 0 e a expiração é mantida.
func (c *MemoryClient) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, _ := c.lookup(key)
	n := int64(0)
	if e.value != "" {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	c.m[key] = e
	return n, nil
}

func (c *MemoryClient) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.m, k)
	}
	return nil
}
