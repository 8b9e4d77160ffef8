package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/event"
)

// Outcome classifies what Apply did with a diff.
type Outcome uint8

const (
	// OutcomeBuffered: no baseline yet, the diff was parked in the
	// pending buffer for reconciliation.
	OutcomeBuffered Outcome = iota
	// OutcomeApplied: the diff mutated the book and advanced the
	// sequence cursor.
	OutcomeApplied
	// OutcomeDiscarded: stale or duplicate delivery, idempotent no-op.
	OutcomeDiscarded
	// OutcomeResync: the diff left a gap; the book is no longer
	// trustworthy and a fresh snapshot is required.
	OutcomeResync
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBuffered:
		return "buffered"
	case OutcomeApplied:
		return "applied"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeResync:
		return "resync"
	default:
		return "unknown"
	}
}

// Sequencer validates incremental diffs against the snapshot baseline,
// detects gaps, and keeps the book consistent. It owns the pending
// buffer used between stream start and snapshot arrival. Not safe for
// concurrent use; the engine loop is its single caller.
type Sequencer struct {
	book *Book

	lastUpdateID int64
	ready        bool
	pending      []*event.DepthDiffEvent
}

func NewSequencer(book *Book) *Sequencer {
	return &Sequencer{book: book}
}

// Ready reports whether a baseline has been loaded and diffs apply live.
func (s *Sequencer) Ready() bool { return s.ready }

// LastUpdateID is the exchange sequence id of the last applied change.
// Monotonically non-decreasing within a session.
func (s *Sequencer) LastUpdateID() int64 { return s.lastUpdateID }

// PendingLen is the number of buffered diffs awaiting reconciliation.
func (s *Sequencer) PendingLen() int { return len(s.pending) }

// Reset drops all state: not ready, empty buffer, zero cursor.
// Buffered events are returned to the pool.
func (s *Sequencer) Reset() {
	for _, ev := range s.pending {
		event.ReleaseDepthDiff(ev)
	}
	s.pending = s.pending[:0]
	s.ready = false
	s.lastUpdateID = 0
}

// Apply processes one diff. The caller keeps ownership of the event
// unless the outcome is OutcomeBuffered, in which case the sequencer
// retains it until the next Reconcile or Reset.
func (s *Sequencer) Apply(ev *event.DepthDiffEvent) Outcome {
	if !s.ready {
		s.pending = append(s.pending, ev)
		return OutcomeBuffered
	}

	// Stale or duplicate delivery: everything up to and including
	// lastUpdateID is already in the book.
	if ev.FinalUpdateID <= s.lastUpdateID {
		return OutcomeDiscarded
	}

	// Gap: at least one diff between the cursor and this event was lost.
	if ev.FirstUpdateID > s.lastUpdateID+1 {
		s.ready = false
		for _, p := range s.pending {
			event.ReleaseDepthDiff(p)
		}
		s.pending = s.pending[:0]
		return OutcomeResync
	}

	s.applyToBook(ev)
	return OutcomeApplied
}

func (s *Sequencer) applyToBook(ev *event.DepthDiffEvent) {
	s.book.ApplyAll(domain.SideBid, ev.Bids)
	s.book.ApplyAll(domain.SideAsk, ev.Asks)
	s.lastUpdateID = ev.FinalUpdateID
}

// Reconcile loads the snapshot as the new baseline and replays the
// pending buffer on top of it. lenient is true when the replay start
// was chosen by the fallback policy that does not verify continuity
// from the snapshot to the first diff. A non-nil error means a
// discontinuity was found mid-replay and the caller must refetch.
// On return (success or error) the pending buffer is empty.
func (s *Sequencer) Reconcile(snap domain.DepthSnapshot) (lenient bool, err error) {
	defer func() {
		for _, ev := range s.pending {
			event.ReleaseDepthDiff(ev)
		}
		s.pending = s.pending[:0]
	}()

	s.book.ReplaceAll(domain.SideBid, snap.Bids)
	s.book.ReplaceAll(domain.SideAsk, snap.Asks)
	s.lastUpdateID = snap.LastUpdateID

	sort.SliceStable(s.pending, func(i, j int) bool {
		return s.pending[i].FirstUpdateID < s.pending[j].FirstUpdateID
	})

	// Preferred path: a bridging event straddling the snapshot id.
	start := -1
	for i, ev := range s.pending {
		if ev.FirstUpdateID <= snap.LastUpdateID+1 && ev.FinalUpdateID >= snap.LastUpdateID+1 {
			start = i
			break
		}
	}

	if start < 0 {
		// Fallback: first buffered event that ends at or after the
		// snapshot id. This tolerates some imprecision: continuity
		// between the snapshot and that event's start is not verified.
		for i, ev := range s.pending {
			if ev.FinalUpdateID >= snap.LastUpdateID {
				start = i
				lenient = true
				break
			}
		}
	}

	if start < 0 {
		// Nothing in the buffer connects to this snapshot. Trust the
		// snapshot alone; live diffs take over from here.
		s.ready = true
		return false, nil
	}

	if lenient {
		slog.Warn("reconcile: no bridging diff, replaying without continuity check",
			slog.Int64("snapshot_id", snap.LastUpdateID),
			slog.Int64("replay_from", s.pending[start].FirstUpdateID))
	}

	for i := start; i < len(s.pending); i++ {
		ev := s.pending[i]
		if ev.FinalUpdateID <= s.lastUpdateID {
			continue // overlap already covered
		}
		// The first replayed event may start at or before the cursor
		// (bridging) or, under the lenient policy, past it. Every
		// subsequent event must be contiguous.
		if i != start && ev.FirstUpdateID > s.lastUpdateID+1 {
			return lenient, fmt.Errorf("replay gap after %d, next diff starts at %d: %w",
				s.lastUpdateID, ev.FirstUpdateID, domain.ErrSequenceGap)
		}
		s.applyToBook(ev)
	}

	s.ready = true
	return lenient, nil
}
