// This file is part of the supernova library.
//
// The supernova library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The supernova library is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public
// License along with the supernova library. If not, see
// <http://www.gnu.org/licenses/>.

package database

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	goleveldbiterator "github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/supernova-labs/supernova/log"
)

var levelDBLogger = log.NewModuleLogger(log.Storage)

type levelDBStore struct {
	dir string
	db  *leveldb.DB
}

func levelDBOptions(cacheSizeMB, handles int) *opt.Options {
	if cacheSizeMB < 16 {
		cacheSizeMB = 16
	}
	if handles < 16 {
		handles = 16
	}
	return &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cacheSizeMB / 2 * opt.MiB,
		WriteBuffer:            cacheSizeMB / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}
}

// OpenLevelDB opens (or creates) a leveldb-backed Store at dir, recovering
// from a corrupted manifest the way a previous unclean shutdown can leave
// behind.
func OpenLevelDB(dir string, cacheSizeMB, handles int) (Store, error) {
	db, err := leveldb.OpenFile(dir, levelDBOptions(cacheSizeMB, handles))
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		levelDBLogger.Warn("leveldb manifest corrupted, attempting recovery", "dir", dir)
		db, err = leveldb.RecoverFile(dir, nil)
	}
	if err != nil {
		return nil, err
	}
	return &levelDBStore{dir: dir, db: db}, nil
}

func (s *levelDBStore) Type() DBType { return LevelDB }

func (s *levelDBStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *levelDBStore) Has(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

func (s *levelDBStore) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

func (s *levelDBStore) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

func (s *levelDBStore) Close() error {
	return s.db.Close()
}

func (s *levelDBStore) NewIterator(prefix []byte) Iterator {
	var rng *util.Range
	if len(prefix) > 0 {
		rng = util.BytesPrefix(prefix)
	}
	return &levelDBIterator{it: s.db.NewIterator(rng, nil)}
}

type levelDBIterator struct {
	it goleveldbiterator.Iterator
}

func (it *levelDBIterator) Next() bool    { return it.it.Next() }
func (it *levelDBIterator) Key() []byte   { return it.it.Key() }
func (it *levelDBIterator) Value() []byte { return it.it.Value() }
func (it *levelDBIterator) Release()      { it.it.Release() }
func (it *levelDBIterator) Error() error  { return it.it.Error() }

func (s *levelDBStore) NewBatch() Batch {
	return &levelDBBatch{db: s.db, b: new(leveldb.Batch)}
}

type levelDBBatch struct {
	db   *leveldb.DB
	b    *leveldb.Batch
	size int
}

func (b *levelDBBatch) Put(key, value []byte) error {
	b.b.Put(key, value)
	b.size += len(key) + len(value)
	return nil
}

func (b *levelDBBatch) Delete(key []byte) error {
	b.b.Delete(key)
	b.size += len(key)
	return nil
}

func (b *levelDBBatch) ValueSize() int { return b.size }

func (b *levelDBBatch) Write() error {
	return b.db.Write(b.b, nil)
}

func (b *levelDBBatch) Reset() {
	b.b.Reset()
	b.size = 0
}
