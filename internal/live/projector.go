// Package live implements the live-state projector: a poller listener that
// filters decoded snapshots down to matches currently in {PRE, LIVE} and
// publishes them via atomic reference swap (§4.4).
package live

import (
	"context"
	"strings"
	"sync/atomic"

	json "github.com/goccy/go-json"

	"github.com/coachpo/meltica/errs"
	"github.com/coachpo/meltica/internal/feed"
)

const component = "live"

// snapshotPayload is the JSON shape delivered by the poller: {"odds": "..."}.
type snapshotPayload struct {
	Odds string `json:"odds"`
}

// Projector implements poller.Listener, maintaining the public live view.
type Projector struct {
	decoder *feed.Decoder
	view    atomic.Pointer[map[string]feed.MappedMatch]
}

// NewProjector constructs a Projector that decodes records via decoder.
func NewProjector(decoder *feed.Decoder) *Projector {
	p := &Projector{decoder: decoder}
	empty := make(map[string]feed.MappedMatch)
	p.view.Store(&empty)
	return p
}

// OnChange parses payload, decodes every non-empty line, and atomically
// replaces the public view with matches whose status is PRE or LIVE. On
// error, the previous view is preserved and the error is returned to the
// poller, which treats the cycle as failed.
func (p *Projector) OnChange(ctx context.Context, _ string, payload string) error {
	var parsed snapshotPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return errs.New(component, errs.KindInvalidResponse, errs.WithMessage("malformed snapshot payload"), errs.WithCause(err))
	}

	next := make(map[string]feed.MappedMatch)
	for _, line := range strings.Split(parsed.Odds, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		match, err := p.decoder.Parse(ctx, line)
		if err != nil {
			return err
		}
		if match.Status == feed.StatusPre || match.Status == feed.StatusLive {
			next[match.ID] = match
		}
	}

	p.view.Store(&next)
	return nil
}

// Current returns a defensive shallow copy of the public view.
func (p *Projector) Current() map[string]feed.MappedMatch {
	view := *p.view.Load()
	out := make(map[string]feed.MappedMatch, len(view))
	for id, match := range view {
		out[id] = match
	}
	return out
}
