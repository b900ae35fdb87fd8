// Package history implements the append-only per-match history store: a
// poller listener that deduplicates snapshot lines, indexes the current
// status of every known match, and synthesizes terminal REMOVED entries for
// matches that vanish while LIVE (§4.5).
package history

import (
	"context"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coachpo/meltica/errs"
	"github.com/coachpo/meltica/internal/feed"
	"github.com/coachpo/meltica/internal/idset"
	"github.com/coachpo/meltica/internal/telemetry"
)

const component = "history"

// Generated is the literal raw_line value recorded on synthetic entries.
const Generated = "(Generated)"

// snapshotPayload is the JSON shape delivered by the poller: {"odds": "..."}.
type snapshotPayload struct {
	Odds string `json:"odds"`
}

// Entry is one immutable observed (or synthesized) state of a match.
type Entry struct {
	TimestampMS  int64
	RawLine      string
	RenderedJSON []byte
	Status       feed.Status
}

// Store is an in-memory, append-only history store, written against the
// operations below so a persistent backend could later be substituted
// without disturbing the REMOVED-synthesis and dedup logic that lives here.
type Store struct {
	decoder *feed.Decoder
	metrics *telemetry.Metrics
	clock   func() time.Time

	mu      sync.RWMutex
	entries map[string][]Entry
}

// New constructs a Store that decodes lines via decoder.
func New(decoder *feed.Decoder, metrics *telemetry.Metrics) *Store {
	return &Store{
		decoder: decoder,
		metrics: metrics,
		clock:   time.Now,
		entries: make(map[string][]Entry),
	}
}

// OnChange implements poller.Listener. It aborts the whole snapshot, without
// rolling back lines already applied, the first time a line's match id (field
// 0) fails UUID validation — a deliberate fail-fast contract (§4.5, §9).
func (s *Store) OnChange(ctx context.Context, _ string, payload string) error {
	var parsed snapshotPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return errs.New(component, errs.KindInvalidResponse, errs.WithMessage("malformed snapshot payload"), errs.WithCause(err))
	}

	seen := make(map[string]struct{})
	for _, line := range strings.Split(parsed.Odds, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		matchID := feed.FirstField(line)
		if !idset.Valid(matchID) {
			return errs.New(component, errs.KindInvalidMatchID, errs.WithMessage("not a valid identifier: "+matchID))
		}
		if err := s.applyLine(ctx, matchID, line); err != nil {
			return err
		}
		seen[matchID] = struct{}{}
	}

	return s.synthesizeRemovals(ctx, seen)
}

// applyLine appends a new entry for matchID unless its raw line is
// byte-identical to the most recent recorded entry (the dedup rule).
func (s *Store) applyLine(ctx context.Context, matchID, line string) error {
	s.mu.RLock()
	existing := s.entries[matchID]
	s.mu.RUnlock()

	if len(existing) > 0 && existing[len(existing)-1].RawLine == line {
		return nil
	}

	match, err := s.decoder.Parse(ctx, line)
	if err != nil {
		return err
	}
	rendered, err := json.Marshal(match)
	if err != nil {
		return errs.New(component, errs.KindInvalidRecord, errs.WithMessage("render match"), errs.WithCause(err))
	}

	entry := Entry{
		TimestampMS:  s.clock().UnixMilli(),
		RawLine:      line,
		RenderedJSON: rendered,
		Status:       match.Status,
	}

	s.mu.Lock()
	s.entries[matchID] = append(s.entries[matchID], entry)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.HistoryAppend()
	}
	return nil
}

// synthesizeRemovals appends a terminal REMOVED entry for every match that
// was LIVE before this snapshot and is absent from it.
func (s *Store) synthesizeRemovals(ctx context.Context, presentInSnapshot map[string]struct{}) error {
	for _, id := range s.IDsWithStatus(feed.StatusLive) {
		if _, present := presentInSnapshot[id]; present {
			continue
		}

		s.mu.RLock()
		entries := s.entries[id]
		s.mu.RUnlock()
		if len(entries) == 0 {
			continue
		}
		last := entries[len(entries)-1]

		match, err := s.decoder.Parse(ctx, last.RawLine)
		if err != nil {
			return err
		}
		match.Status = feed.StatusRemoved
		rendered, err := json.Marshal(match)
		if err != nil {
			return errs.New(component, errs.KindInvalidRecord, errs.WithMessage("render removed match"), errs.WithCause(err))
		}

		entry := Entry{
			TimestampMS:  s.clock().UnixMilli(),
			RawLine:      Generated,
			RenderedJSON: rendered,
			Status:       feed.StatusRemoved,
		}

		s.mu.Lock()
		s.entries[id] = append(s.entries[id], entry)
		s.mu.Unlock()

		if s.metrics != nil {
			s.metrics.HistoryRemovedSynthesized()
		}
	}
	return nil
}

// Current returns the most recent history entry for id, or false if id is
// unknown.
func (s *Store) Current(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.entries[id]
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[len(entries)-1], true
}

// History returns the full ordered sequence of entries for id, oldest
// first. It is empty (not nil) for an unknown id.
func (s *Store) History(id string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.entries[id]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// AllIDs returns every known match id, order unspecified, no duplicates.
func (s *Store) AllIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, id)
	}
	return out
}

// IDsWithStatus returns the ids whose current entry's status equals status.
func (s *Store) IDsWithStatus(status feed.Status) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for id, entries := range s.entries {
		if len(entries) == 0 {
			continue
		}
		if entries[len(entries)-1].Status == status {
			out = append(out, id)
		}
	}
	return out
}

// Clear drops all entries. It never fails. It does not reset any state
// owned by other components (the poller's checksum is independent).
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string][]Entry)
	s.mu.Unlock()
}
