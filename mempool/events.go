package mempool

import (
	"sync"

	"github.com/supernova-labs/supernova/common"
)

// TxAdmitted notifies that a transaction was accepted into the pool.
type TxAdmitted struct {
	Hash common.Hash
}

// TxEvicted notifies that a transaction left the pool other than by
// confirmation: low-fee eviction, or dropped as a reorg conflict.
type TxEvicted struct {
	Hash   common.Hash
	Reason string
}

// Notifier fans TxAdmitted/TxEvicted out to subscribers without blocking
// the pool's single writer, the same non-blocking-send shape as
// blockchain.Notifier.
type Notifier struct {
	mu       sync.RWMutex
	admitted []chan<- TxAdmitted
	evicted  []chan<- TxEvicted
}

// NewNotifier returns an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// SubscribeAdmitted registers ch to receive future TxAdmitted events.
func (n *Notifier) SubscribeAdmitted(ch chan<- TxAdmitted) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admitted = append(n.admitted, ch)
}

// SubscribeEvicted registers ch to receive future TxEvicted events.
func (n *Notifier) SubscribeEvicted(ch chan<- TxEvicted) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.evicted = append(n.evicted, ch)
}

func (n *Notifier) emitAdmitted(ev TxAdmitted) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.admitted {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (n *Notifier) emitEvicted(ev TxEvicted) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.evicted {
		select {
		case ch <- ev:
		default:
		}
	}
}
