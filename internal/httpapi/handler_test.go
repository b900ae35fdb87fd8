package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachpo/meltica/internal/feed"
	"github.com/coachpo/meltica/internal/history"
)

type fakeProjector struct {
	current map[string]feed.MappedMatch
}

func (f *fakeProjector) Current() map[string]feed.MappedMatch { return f.current }

type fakeHistory struct {
	ids     []string
	current map[string]history.Entry
	entries map[string][]history.Entry
}

func (f *fakeHistory) AllIDs() []string { return f.ids }
func (f *fakeHistory) Current(id string) (history.Entry, bool) {
	e, ok := f.current[id]
	return e, ok
}
func (f *fakeHistory) History(id string) []history.Entry { return f.entries[id] }

func TestHandleStateReturnsProjectorView(t *testing.T) {
	h := New(&fakeProjector{current: map[string]feed.MappedMatch{
		"m1": {ID: "m1", Status: feed.StatusLive},
	}}, &fakeHistory{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]feed.MappedMatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, feed.StatusLive, body["m1"].Status)
}

func TestHandleStateEmptyProjectionReturnsEmptyObject(t *testing.T) {
	h := New(&fakeProjector{current: map[string]feed.MappedMatch{}}, &fakeHistory{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, "{}", rec.Body.String())
}

func TestHandleInternalStateMergesRenderedEntries(t *testing.T) {
	h := New(&fakeProjector{}, &fakeHistory{
		ids: []string{"m1"},
		current: map[string]history.Entry{
			"m1": {RenderedJSON: []byte(`{"id":"m1","status":"REMOVED"}`)},
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/internalstate", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "m1")
}

func TestHandleMatchHistoryReturns404WhenUnknown(t *testing.T) {
	h := New(&fakeProjector{}, &fakeHistory{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/matchhistory/unknown-id", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleMatchHistoryReturnsEntriesInOrder(t *testing.T) {
	h := New(&fakeProjector{}, &fakeHistory{
		entries: map[string][]history.Entry{
			"m1": {
				{TimestampMS: 1729839678453, RenderedJSON: []byte(`{"id":"m1","status":"LIVE"}`)},
				{TimestampMS: 1729839679000, RenderedJSON: []byte(`{"id":"m1","status":"REMOVED"}`)},
			},
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/matchhistory/m1", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body []historyItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "2024-10-25T07:01:18.453Z", body[0].StateTimeStamp)
}
