// Package idset validates the textual identifiers used at every boundary of
// the tracker: feed records, resolver dictionary entries, and history/state
// lookups are all keyed by 8-4-4-4-12 hex UUIDs.
package idset

import (
	"strings"

	"github.com/google/uuid"

	"github.com/coachpo/meltica/errs"
)

// Valid reports whether s is a syntactically valid UUID in the 8-4-4-4-12
// hex form.
func Valid(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Require validates s as a UUID, returning a KindInvalidID error tagged with
// component when it is not.
func Require(component, s string) error {
	if Valid(s) {
		return nil
	}
	return errs.New(component, errs.KindInvalidID, errs.WithMessage("not a valid identifier: "+strings.TrimSpace(s)))
}
