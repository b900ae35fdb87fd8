package feed

import (
	"context"
	"strings"
)

// Resolver maps opaque identifiers to human names. internal/resolver.Resolver
// satisfies this interface; it is named narrowly here so the decoder depends
// only on the capability it needs.
type Resolver interface {
	Get(ctx context.Context, id string) (string, error)
}

// Decoder parses raw feed lines and denormalizes them through a Resolver.
// It is stateless apart from the resolver reference (§4.2).
type Decoder struct {
	resolver Resolver
}

// NewDecoder constructs a Decoder backed by resolver.
func NewDecoder(resolver Resolver) *Decoder {
	return &Decoder{resolver: resolver}
}

// Parse validates line against the record grammar and denormalizes it into a
// MappedMatch, resolving every identifier through the decoder's resolver.
func (d *Decoder) Parse(ctx context.Context, line string) (MappedMatch, error) {
	rec, err := parseLine(line)
	if err != nil {
		return MappedMatch{}, err
	}
	return d.denormalize(ctx, rec)
}

func (d *Decoder) denormalize(ctx context.Context, rec rawRecord) (MappedMatch, error) {
	sport, err := d.resolver.Get(ctx, rec.sportID)
	if err != nil {
		return MappedMatch{}, err
	}
	competition, err := d.resolver.Get(ctx, rec.competitionID)
	if err != nil {
		return MappedMatch{}, err
	}
	status, err := d.resolver.Get(ctx, rec.statusID)
	if err != nil {
		return MappedMatch{}, err
	}
	homeName, err := d.resolver.Get(ctx, rec.homeID)
	if err != nil {
		return MappedMatch{}, err
	}
	awayName, err := d.resolver.Get(ctx, rec.awayID)
	if err != nil {
		return MappedMatch{}, err
	}

	scores := make(map[string]Score, len(rec.periods))
	for _, p := range rec.periods {
		periodName, err := d.resolver.Get(ctx, p.periodID)
		if err != nil {
			return MappedMatch{}, err
		}
		scores[periodName] = Score{Type: periodName, Home: p.home, Away: p.away}
	}

	return MappedMatch{
		ID:          rec.matchID,
		Status:      Status(status),
		Sport:       sport,
		Competition: competition,
		StartTime:   formatStartTime(rec.startTimeMS),
		Competitors: Competitors{
			Home: Competitor{Type: "HOME", Name: homeName},
			Away: Competitor{Type: "AWAY", Name: awayName},
		},
		Scores: scores,
	}, nil
}

// FirstField extracts field 0 (the match id) from a raw line, without
// running full record validation. The history store uses it for the
// fail-fast match-id check (§4.5), which validates only field 0 before
// committing to a full parse of the rest of the line.
func FirstField(line string) string {
	before, _, ok := strings.Cut(line, ",")
	if !ok {
		return line
	}
	return before
}
