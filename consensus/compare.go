package consensus

import "github.com/supernova-labs/supernova/common"

// Ordering is a three-way comparison result.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// ChainCandidate is the (work, tip hash) pair fork choice reasons about.
type ChainCandidate struct {
	Work *ChainWork
	Tip  common.Hash
}

// CompareChains gives the total order over (chainwork, tip hash) used for
// deterministic tie detection: ascending by chainwork, then ascending by
// the tip hash's raw byte value. Every node evaluates this identically, so
// two nodes never disagree about whether two candidates are tied.
//
// CompareChains is a plain total order, not a "which chain wins" answer —
// use IsBetterTip for actual fork-choice decisions, since the canonical
// tiebreak (smallest hash becomes the active tip) inverts the hash
// ordering relative to this comparator.
func CompareChains(a, b ChainCandidate) Ordering {
	switch a.Work.Compare(b.Work) {
	case -1:
		return Less
	case 1:
		return Greater
	}
	switch a.Tip.Compare(b.Tip) {
	case -1:
		return Less
	case 1:
		return Greater
	default:
		return Equal
	}
}

// IsBetterTip reports whether candidate should replace current as the
// active chain tip: strictly greater chainwork always wins; on a tie, the
// lexicographically smaller tip hash wins.
func IsBetterTip(candidate, current ChainCandidate) bool {
	switch candidate.Work.Compare(current.Work) {
	case 1:
		return true
	case -1:
		return false
	}
	return candidate.Tip.Less(current.Tip)
}
