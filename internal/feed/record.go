// Package feed parses the upstream snapshot's line/field/sub-field grammar
// into denormalized mapped-match records.
package feed

import (
	"strconv"
	"strings"
	"time"

	"github.com/coachpo/meltica/errs"
	"github.com/coachpo/meltica/internal/idset"
)

const component = "feed"

// Status is the denormalized lifecycle state of a match.
type Status string

const (
	StatusPre     Status = "PRE"
	StatusLive    Status = "LIVE"
	StatusRemoved Status = "REMOVED"
)

// Competitor describes one side of a match.
type Competitor struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Score is the denormalized score for a single period.
type Score struct {
	Type string `json:"type"`
	Home int    `json:"home"`
	Away int    `json:"away"`
}

// Competitors is the fixed {HOME, AWAY} pair attached to a mapped match.
type Competitors struct {
	Home Competitor `json:"HOME"`
	Away Competitor `json:"AWAY"`
}

// MappedMatch is the denormalized, serializable view of one match (§3).
type MappedMatch struct {
	ID          string           `json:"id"`
	Status      Status           `json:"status"`
	Sport       string           `json:"sport"`
	Competition string           `json:"competition"`
	StartTime   string           `json:"startTime"`
	Competitors Competitors      `json:"competitors"`
	Scores      map[string]Score `json:"scores"`
}

// rawRecord is the field-split, not-yet-denormalized view of one line.
type rawRecord struct {
	matchID       string
	sportID       string
	competitionID string
	startTimeMS   int64
	homeID        string
	awayID        string
	statusID      string
	periods       []rawPeriod
}

type rawPeriod struct {
	periodID string
	home     int
	away     int
}

// parseLine validates and splits line into a rawRecord per §4.2 rules 1-4,
// evaluated in order; the first failure returns InvalidRecord.
func parseLine(line string) (rawRecord, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 7 && len(fields) != 8 {
		return rawRecord{}, errs.New(component, errs.KindInvalidRecord,
			errs.WithMessage("expected 7 or 8 fields, got "+strconv.Itoa(len(fields))))
	}

	for _, idx := range []int{0, 1, 2, 4, 5, 6} {
		if !idset.Valid(fields[idx]) {
			return rawRecord{}, errs.New(component, errs.KindInvalidRecord,
				errs.WithMessage("field "+strconv.Itoa(idx)+" is not a valid identifier"))
		}
	}

	startTimeMS, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
	if err != nil {
		return rawRecord{}, errs.New(component, errs.KindInvalidRecord,
			errs.WithMessage("field 3 is not an integer"), errs.WithCause(err))
	}

	rec := rawRecord{
		matchID:       fields[0],
		sportID:       fields[1],
		competitionID: fields[2],
		startTimeMS:   startTimeMS,
		homeID:        fields[4],
		awayID:        fields[5],
		statusID:      fields[6],
	}

	if len(fields) == 8 && strings.TrimSpace(fields[7]) != "" {
		periods, err := parsePeriods(fields[7])
		if err != nil {
			return rawRecord{}, err
		}
		rec.periods = periods
	}

	return rec, nil
}

// parsePeriods parses the "period_id@home:away" sub-grammar, "|"-separated.
func parsePeriods(raw string) ([]rawPeriod, error) {
	segments := strings.Split(raw, "|")
	out := make([]rawPeriod, 0, len(segments))
	for _, segment := range segments {
		periodID, scores, ok := strings.Cut(segment, "@")
		if !ok {
			return nil, errs.New(component, errs.KindInvalidRecord,
				errs.WithMessage("missing '@' in score period: "+segment))
		}
		if !idset.Valid(periodID) {
			return nil, errs.New(component, errs.KindInvalidRecord,
				errs.WithMessage("score period id is not a valid identifier: "+periodID))
		}
		homeRaw, awayRaw, ok := strings.Cut(scores, ":")
		if !ok {
			return nil, errs.New(component, errs.KindInvalidRecord,
				errs.WithMessage("missing ':' in score period: "+segment))
		}
		home, err := strconv.Atoi(strings.TrimSpace(homeRaw))
		if err != nil {
			return nil, errs.New(component, errs.KindInvalidRecord,
				errs.WithMessage("score home value is not an integer: "+segment), errs.WithCause(err))
		}
		away, err := strconv.Atoi(strings.TrimSpace(awayRaw))
		if err != nil {
			return nil, errs.New(component, errs.KindInvalidRecord,
				errs.WithMessage("score away value is not an integer: "+segment), errs.WithCause(err))
		}
		out = append(out, rawPeriod{periodID: periodID, home: home, away: away})
	}
	return out, nil
}

// formatStartTime renders an epoch-millisecond timestamp as an ISO-8601
// instant in UTC with millisecond precision and a trailing "Z".
func formatStartTime(ms int64) string {
	t := time.UnixMilli(ms).UTC()
	return t.Format("2006-01-02T15:04:05.000Z")
}
