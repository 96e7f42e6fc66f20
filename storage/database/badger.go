package database

import (
	"os"
	"time"

	"github.com/dgraph-io/badger"

	"github.com/supernova-labs/supernova/log"
)

const gcInterval = 5 * time.Minute

var badgerLogger = log.NewModuleLogger(log.Storage)

type badgerStore struct {
	dir      string
	db       *badger.DB
	gcTicker *time.Ticker
	closeGC  chan struct{}
}

// OpenBadgerDB opens (or creates) a badger-backed Store at dir, the
// alternative embedded backend for deployments that prefer badger's
// LSM/value-log split over leveldb's single-file layout.
func OpenBadgerDB(dir string) (Store, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	s := &badgerStore{dir: dir, db: db, gcTicker: time.NewTicker(gcInterval), closeGC: make(chan struct{})}
	go s.runValueLogGC()
	return s, nil
}

func (s *badgerStore) runValueLogGC() {
	for {
		select {
		case <-s.gcTicker.C:
			if err := s.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
				badgerLogger.Warn("value log gc failed", "err", err)
			}
		case <-s.closeGC:
			return
		}
	}
}

func (s *badgerStore) Type() DBType { return BadgerDB }

func (s *badgerStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		v, err := item.Value()
		if err != nil {
			return err
		}
		value = append([]byte(nil), v...)
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *badgerStore) Has(key []byte) (bool, error) {
	_, err := s.Get(key)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *badgerStore) Put(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *badgerStore) Delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (s *badgerStore) Close() error {
	close(s.closeGC)
	s.gcTicker.Stop()
	return s.db.Close()
}

func (s *badgerStore) NewBatch() Batch {
	return &badgerBatch{db: s.db, txn: s.db.NewTransaction(true)}
}

type badgerBatch struct {
	db   *badger.DB
	txn  *badger.Txn
	size int
}

func (b *badgerBatch) Put(key, value []byte) error {
	if err := b.txn.Set(key, value); err != nil {
		b.txn.Discard()
		b.txn = b.db.NewTransaction(true)
		if err := b.txn.Set(key, value); err != nil {
			return err
		}
	}
	b.size += len(key) + len(value)
	return nil
}

func (b *badgerBatch) Delete(key []byte) error {
	if err := b.txn.Delete(key); err != nil {
		b.txn.Discard()
		b.txn = b.db.NewTransaction(true)
		if err := b.txn.Delete(key); err != nil {
			return err
		}
	}
	b.size += len(key)
	return nil
}

func (b *badgerBatch) ValueSize() int { return b.size }

func (b *badgerBatch) Write() error {
	defer b.txn.Discard()
	return b.txn.Commit(nil)
}

func (b *badgerBatch) Reset() {
	b.txn.Discard()
	b.txn = b.db.NewTransaction(true)
	b.size = 0
}

type badgerIterator struct {
	txn    *badger.Txn
	it     *badger.Iterator
	prefix []byte
	first  bool
}

func (s *badgerStore) NewIterator(prefix []byte) Iterator {
	txn := s.db.NewTransaction(false)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	bi := &badgerIterator{txn: txn, it: it, prefix: prefix, first: true}
	return bi
}

func (it *badgerIterator) Next() bool {
	if it.first {
		it.first = false
		if len(it.prefix) > 0 {
			it.it.Seek(it.prefix)
		} else {
			it.it.Rewind()
		}
	} else {
		it.it.Next()
	}
	if !it.it.Valid() {
		return false
	}
	if len(it.prefix) > 0 && !it.it.ValidForPrefix(it.prefix) {
		return false
	}
	return true
}

func (it *badgerIterator) Key() []byte {
	return it.it.Item().KeyCopy(nil)
}

func (it *badgerIterator) Value() []byte {
	v, _ := it.it.Item().Value()
	return v
}

func (it *badgerIterator) Release() {
	it.it.Close()
	it.txn.Discard()
}

func (it *badgerIterator) Error() error { return nil }
