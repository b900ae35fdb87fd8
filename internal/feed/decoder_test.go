package feed

import (
	"context"
	"testing"

	"github.com/coachpo/meltica/errs"
)

type fakeResolver struct {
	names map[string]string
}

func (f *fakeResolver) Get(_ context.Context, id string) (string, error) {
	name, ok := f.names[id]
	if !ok {
		return "", errs.New("fakeResolver", errs.KindNotFound, errs.WithMessage("unbound: "+id))
	}
	return name, nil
}

func TestParseValidRecordWithTwoPeriods(t *testing.T) {
	line := "ec517b6c-6ed8-4449-ad9b-0a1dbbbf8fb9,9860e748-1f53-45ed-9a3f-2eeb46550083," +
		"13605dbb-fb95-4373-8354-dbce8272086c,1729839678453," +
		"c22ca89b-50db-4a90-84d3-25daf31de9db,54963ddf-ddc6-41b6-a7d1-3e2b76f531c0," +
		"93f346fd-c921-4f67-b4c3-64fe1f466140," +
		"5c3a00b4-6dca-4439-8340-9eba10777517@14:9|dcbade30-42ad-47bc-8698-71ff7e6c337f@8:3"

	resolver := &fakeResolver{names: map[string]string{
		"9860e748-1f53-45ed-9a3f-2eeb46550083": "FOOTBALL",
		"13605dbb-fb95-4373-8354-dbce8272086c": "UEFA Champions League",
		"c22ca89b-50db-4a90-84d3-25daf31de9db": "Bayern Munich",
		"54963ddf-ddc6-41b6-a7d1-3e2b76f531c0": "Juventus",
		"93f346fd-c921-4f67-b4c3-64fe1f466140": "LIVE",
		"5c3a00b4-6dca-4439-8340-9eba10777517": "CURRENT",
		"dcbade30-42ad-47bc-8698-71ff7e6c337f": "PERIOD_1",
	}}

	d := NewDecoder(resolver)
	match, err := d.Parse(context.Background(), line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if match.ID != "ec517b6c-6ed8-4449-ad9b-0a1dbbbf8fb9" {
		t.Errorf("ID = %q", match.ID)
	}
	if match.StartTime != "2024-10-25T07:01:18.453Z" {
		t.Errorf("StartTime = %q, want 2024-10-25T07:01:18.453Z", match.StartTime)
	}
	if match.Sport != "FOOTBALL" {
		t.Errorf("Sport = %q", match.Sport)
	}
	if match.Competition != "UEFA Champions League" {
		t.Errorf("Competition = %q", match.Competition)
	}
	if match.Competitors.Home.Name != "Bayern Munich" || match.Competitors.Away.Name != "Juventus" {
		t.Errorf("Competitors = %+v", match.Competitors)
	}
	if match.Status != StatusLive {
		t.Errorf("Status = %q, want LIVE", match.Status)
	}
	current, ok := match.Scores["CURRENT"]
	if !ok || current.Home != 14 || current.Away != 9 {
		t.Errorf("Scores[CURRENT] = %+v, ok=%v", current, ok)
	}
	period1, ok := match.Scores["PERIOD_1"]
	if !ok || period1.Home != 8 || period1.Away != 3 {
		t.Errorf("Scores[PERIOD_1] = %+v, ok=%v", period1, ok)
	}
}

func TestParseSixFieldLineIsInvalidRecord(t *testing.T) {
	line := "ec517b6c-6ed8-4449-ad9b-0a1dbbbf8fb9,9860e748-1f53-45ed-9a3f-2eeb46550083," +
		"13605dbb-fb95-4373-8354-dbce8272086c,1729839678453," +
		"c22ca89b-50db-4a90-84d3-25daf31de9db,54963ddf-ddc6-41b6-a7d1-3e2b76f531c0"

	d := NewDecoder(&fakeResolver{})
	if _, err := d.Parse(context.Background(), line); !errs.Is(err, errs.KindInvalidRecord) {
		t.Fatalf("expected KindInvalidRecord, got %v", err)
	}
}

func TestParseNonUUIDFieldIsInvalidRecord(t *testing.T) {
	line := "not-a-uuid,9860e748-1f53-45ed-9a3f-2eeb46550083," +
		"13605dbb-fb95-4373-8354-dbce8272086c,1729839678453," +
		"c22ca89b-50db-4a90-84d3-25daf31de9db,54963ddf-ddc6-41b6-a7d1-3e2b76f531c0," +
		"93f346fd-c921-4f67-b4c3-64fe1f466140"

	d := NewDecoder(&fakeResolver{})
	if _, err := d.Parse(context.Background(), line); !errs.Is(err, errs.KindInvalidRecord) {
		t.Fatalf("expected KindInvalidRecord, got %v", err)
	}
}

func TestParseNonIntegerStartTimeIsInvalidRecord(t *testing.T) {
	line := "ec517b6c-6ed8-4449-ad9b-0a1dbbbf8fb9,9860e748-1f53-45ed-9a3f-2eeb46550083," +
		"13605dbb-fb95-4373-8354-dbce8272086c,not-an-integer," +
		"c22ca89b-50db-4a90-84d3-25daf31de9db,54963ddf-ddc6-41b6-a7d1-3e2b76f531c0," +
		"93f346fd-c921-4f67-b4c3-64fe1f466140"

	d := NewDecoder(&fakeResolver{})
	if _, err := d.Parse(context.Background(), line); !errs.Is(err, errs.KindInvalidRecord) {
		t.Fatalf("expected KindInvalidRecord, got %v", err)
	}
}

func TestParseMalformedScorePeriodIsInvalidRecord(t *testing.T) {
	line := "ec517b6c-6ed8-4449-ad9b-0a1dbbbf8fb9,9860e748-1f53-45ed-9a3f-2eeb46550083," +
		"13605dbb-fb95-4373-8354-dbce8272086c,1729839678453," +
		"c22ca89b-50db-4a90-84d3-25daf31de9db,54963ddf-ddc6-41b6-a7d1-3e2b76f531c0," +
		"93f346fd-c921-4f67-b4c3-64fe1f466140,not-a-valid-period"

	d := NewDecoder(&fakeResolver{})
	if _, err := d.Parse(context.Background(), line); !errs.Is(err, errs.KindInvalidRecord) {
		t.Fatalf("expected KindInvalidRecord, got %v", err)
	}
}

func TestParsePropagatesResolverError(t *testing.T) {
	line := "ec517b6c-6ed8-4449-ad9b-0a1dbbbf8fb9,9860e748-1f53-45ed-9a3f-2eeb46550083," +
		"13605dbb-fb95-4373-8354-dbce8272086c,1729839678453," +
		"c22ca89b-50db-4a90-84d3-25daf31de9db,54963ddf-ddc6-41b6-a7d1-3e2b76f531c0," +
		"93f346fd-c921-4f67-b4c3-64fe1f466140"

	d := NewDecoder(&fakeResolver{names: map[string]string{}})
	if _, err := d.Parse(context.Background(), line); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected KindNotFound propagated from resolver, got %v", err)
	}
}

func TestFirstField(t *testing.T) {
	if got := FirstField("a,b,c"); got != "a" {
		t.Errorf("FirstField = %q, want a", got)
	}
	if got := FirstField("solo"); got != "solo" {
		t.Errorf("FirstField = %q, want solo", got)
	}
}
