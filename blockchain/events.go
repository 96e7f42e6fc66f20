package blockchain

import (
	"sync"

	"github.com/supernova-labs/supernova/common"
)

// BlockAccepted notifies that hash became newly valid at height, whether
// by simple extension or as the outcome of a reorg.
type BlockAccepted struct {
	Hash   common.Hash
	Height uint32
}

// ReorgOccurred notifies that the active tip moved from OldTip to NewTip,
// reverting and re-applying Depth blocks.
type ReorgOccurred struct {
	OldTip common.Hash
	NewTip common.Hash
	Depth  int
}

// Notifier fans BlockAccepted and ReorgOccurred events out to any number
// of subscribers (P2P relay, RPC push, miner template invalidation). It
// is the chain-state half of the collaborator notifications spec §6
// names; mempool has its own TxAdmitted/TxEvicted feed since only the
// mempool produces those.
type Notifier struct {
	mu              sync.RWMutex
	blockAccepted   []chan<- BlockAccepted
	reorgOccurred   []chan<- ReorgOccurred
}

// NewNotifier returns an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// SubscribeBlockAccepted registers ch to receive every future
// BlockAccepted event. Sends are non-blocking; a subscriber that falls
// behind misses events rather than stalling block acceptance.
func (n *Notifier) SubscribeBlockAccepted(ch chan<- BlockAccepted) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.blockAccepted = append(n.blockAccepted, ch)
}

// SubscribeReorgOccurred registers ch to receive every future
// ReorgOccurred event.
func (n *Notifier) SubscribeReorgOccurred(ch chan<- ReorgOccurred) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reorgOccurred = append(n.reorgOccurred, ch)
}

func (n *Notifier) emitBlockAccepted(ev BlockAccepted) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.blockAccepted {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (n *Notifier) emitReorgOccurred(ev ReorgOccurred) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.reorgOccurred {
		select {
		case ch <- ev:
		default:
		}
	}
}
