package blockchain

import "errors"

var (
	// ErrBlockNotFound is returned by ReorgTo when the proposed tip is not
	// in the header index.
	ErrBlockNotFound = errors.New("blockchain: proposed tip not found in header index")
	// ErrForkTooDeep is returned by ReorgTo when the proposed tip's common
	// ancestor with the current tip is more than params.MaxForkDepth
	// blocks behind the current tip.
	ErrForkTooDeep = errors.New("blockchain: fork exceeds maximum depth")
	// ErrHeaderInvalid is returned when a header (or an ancestor of it) is
	// marked Invalid in the header index.
	ErrHeaderInvalid = errors.New("blockchain: header is marked invalid")
	// ErrMissingUndoLog is a fatal condition: a block within MAX_FORK_DEPTH
	// of the tip has no persisted UndoSet, so it cannot be reverted. Per
	// spec §7 this is an unrecoverable invariant violation.
	ErrMissingUndoLog = errors.New("blockchain: missing undo log for a block within fork depth")
)
