package executor

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/cache/keys"
)

// docMemo holds documents that do not change during a run: API descriptions,
// conformance declarations and collection metadata.
type docMemo struct {
	mu  sync.Mutex
	lru *lru.Cache[string, []byte]
}

func newDocMemo(size int) *docMemo {
	c, _ := lru.New[string, []byte](size)
	return &docMemo{lru: c}
}

func (m *docMemo) get(uri, accept string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.lru.Get(keys.Document(uri, accept))
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

func (m *docMemo) add(uri, accept string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Add(keys.Document(uri, accept), append([]byte(nil), body...))
}
