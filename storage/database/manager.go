package database

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/supernova-labs/supernova/log"
)

var managerLogger = log.NewModuleLogger(log.Storage)

// Config selects a backend and its tuning knobs, mirroring the teacher's
// DBConfig (Dir/DBType/cache sizing) trimmed to what this module's single
// keyspace needs.
type Config struct {
	Dir            string
	DBType         DBType
	CacheSizeMB    int
	LevelDBHandles int
	HotCacheBytes  int
}

// RecoveryReport describes what Open found about the previous session's
// shutdown. A node wires this into its startup log and, for DirtyShutdown,
// into a UTXO-set consistency re-check before serving requests.
type RecoveryReport struct {
	CleanShutdown     bool
	LastCleanShutdown time.Time
	InterruptedOp     string
	DirtyShutdown     bool
}

// Manager is the UTXO/chain-state persistence boundary every other
// package (blockchain, blockchain/utxo, mempool) writes and reads
// through. It layers a fastcache hot cache, the teacher's own
// VictoriaMetrics/fastcache dependency, in front of the chosen Store.
type Manager struct {
	store Store
	hot   *fastcache.Cache
}

// Open opens the configured backend and returns both the Manager and a
// RecoveryReport describing whether the previous run shut down cleanly.
func Open(cfg Config) (*Manager, RecoveryReport, error) {
	var (
		store Store
		err   error
	)
	switch cfg.DBType {
	case BadgerDB:
		store, err = OpenBadgerDB(cfg.Dir)
	case MemoryDB:
		store = NewMemoryStore()
	default:
		store, err = OpenLevelDB(cfg.Dir, cfg.CacheSizeMB, cfg.LevelDBHandles)
	}
	if err != nil {
		return nil, RecoveryReport{}, fmt.Errorf("open store: %w", err)
	}

	hotBytes := cfg.HotCacheBytes
	if hotBytes <= 0 {
		hotBytes = 32 * 1024 * 1024
	}
	m := &Manager{store: store, hot: fastcache.New(hotBytes)}

	report := m.recover()
	if err := m.store.Put(metaKey(metaShutdownInProgress), []byte{1}); err != nil {
		return nil, report, fmt.Errorf("mark shutdown-in-progress: %w", err)
	}
	return m, report, nil
}

func (m *Manager) recover() RecoveryReport {
	report := RecoveryReport{}

	if raw, err := m.store.Get(metaKey(metaLastCleanShutdown)); err == nil && len(raw) == 8 {
		report.LastCleanShutdown = time.Unix(int64(binary.BigEndian.Uint64(raw)), 0)
		report.CleanShutdown = true
	}

	if ok, _ := m.store.Has(metaKey(metaShutdownInProgress)); ok {
		report.DirtyShutdown = true
		report.CleanShutdown = false
		managerLogger.Warn("previous session did not shut down cleanly")
	}

	if op, err := m.store.Get(metaKey(metaOperationInProgress)); err == nil && len(op) > 0 {
		report.InterruptedOp = string(op)
		managerLogger.Warn("resuming after interrupted operation", "operation", report.InterruptedOp)
	}
	return report
}

// BeginOperation records name as in-progress so a crash mid-reorg or
// mid-block-apply is distinguishable at next startup from ordinary data.
func (m *Manager) BeginOperation(name string) error {
	return m.store.Put(metaKey(metaOperationInProgress), []byte(name))
}

// EndOperation clears the in-progress marker set by BeginOperation.
func (m *Manager) EndOperation() error {
	return m.store.Delete(metaKey(metaOperationInProgress))
}

// Close flushes a clean-shutdown marker and closes the backend. A Manager
// that is never closed (process killed, power loss) leaves
// shutdown_in_progress set, which the next Open reports via
// RecoveryReport.DirtyShutdown.
func (m *Manager) Close() error {
	now := make([]byte, 8)
	binary.BigEndian.PutUint64(now, uint64(nowUnix()))
	if err := m.store.Put(metaKey(metaLastCleanShutdown), now); err != nil {
		return err
	}
	if err := m.store.Delete(metaKey(metaShutdownInProgress)); err != nil {
		return err
	}
	return m.store.Close()
}

// nowUnix is a seam so tests can avoid depending on wall-clock time; it
// is otherwise just time.Now().Unix().
var nowUnix = func() int64 { return time.Now().Unix() }

// Store exposes the underlying Store for packages (blockchain/utxo,
// blockchain) that need direct key access beyond this type's
// convenience wrappers.
func (m *Manager) Store() Store { return m.store }

// Get reads through the hot cache before falling back to the backend.
func (m *Manager) Get(key []byte) ([]byte, error) {
	if v, ok := m.hot.HasGet(nil, key); ok {
		return v, nil
	}
	v, err := m.store.Get(key)
	if err != nil {
		return nil, err
	}
	m.hot.Set(key, v)
	return v, nil
}

// Put writes through the backend and refreshes the hot cache.
func (m *Manager) Put(key, value []byte) error {
	if err := m.store.Put(key, value); err != nil {
		return err
	}
	m.hot.Set(key, value)
	return nil
}

// Delete removes key from both the backend and the hot cache.
func (m *Manager) Delete(key []byte) error {
	m.hot.Del(key)
	return m.store.Delete(key)
}

// WriteBatch wraps a Store batch, invalidating the hot cache for every
// key written once the batch commits so readers never see stale cached
// values after an atomic multi-key mutation (block apply, reorg).
type WriteBatch struct {
	m     *Manager
	batch Batch
	keys  [][]byte
}

// NewWriteBatch starts an atomic batch of writes.
func (m *Manager) NewWriteBatch() *WriteBatch {
	return &WriteBatch{m: m, batch: m.store.NewBatch()}
}

func (wb *WriteBatch) Put(key, value []byte) error {
	wb.keys = append(wb.keys, key)
	return wb.batch.Put(key, value)
}

func (wb *WriteBatch) Delete(key []byte) error {
	wb.keys = append(wb.keys, key)
	return wb.batch.Delete(key)
}

// Commit writes the batch atomically and invalidates every touched key
// in the hot cache.
func (wb *WriteBatch) Commit() error {
	if err := wb.batch.Write(); err != nil {
		return err
	}
	for _, k := range wb.keys {
		wb.m.hot.Del(k)
	}
	return nil
}
