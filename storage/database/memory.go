package database

import (
	"sort"
	"sync"
)

// memStore is an in-memory Store used by tests and by chains that never
// need to survive a restart (e.g. a regression-test genesis-only chain).
type memStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns a Store backed by a plain map.
func NewMemoryStore() Store {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Type() DBType { return MemoryDB }

func (m *memStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *memStore) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *memStore) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[string(key)] = cp
	return nil
}

func (m *memStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) NewBatch() Batch {
	return &memBatch{store: m}
}

func (m *memStore) NewIterator(prefix []byte) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if len(prefix) == 0 || (len(k) >= len(prefix) && k[:len(prefix)] == string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = m.data[k]
	}
	return &memIterator{keys: keys, values: values, pos: -1}
}

type memIterator struct {
	keys   []string
	values [][]byte
	pos    int
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memIterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *memIterator) Value() []byte { return it.values[it.pos] }
func (it *memIterator) Release()      {}
func (it *memIterator) Error() error  { return nil }

type memOp struct {
	key     []byte
	value   []byte
	deleted bool
}

type memBatch struct {
	store *memStore
	ops   []memOp
	size  int
}

func (b *memBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, memOp{key: key, value: value})
	b.size += len(value)
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	b.ops = append(b.ops, memOp{key: key, deleted: true})
	return nil
}

func (b *memBatch) ValueSize() int { return b.size }

func (b *memBatch) Write() error {
	for _, op := range b.ops {
		if op.deleted {
			_ = b.store.Delete(op.key)
			continue
		}
		_ = b.store.Put(op.key, op.value)
	}
	return nil
}

func (b *memBatch) Reset() {
	b.ops = nil
	b.size = 0
}
