package live

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachpo/meltica/errs"
	"github.com/coachpo/meltica/internal/feed"
)

type fakeResolver struct {
	names map[string]string
}

func (f *fakeResolver) Get(_ context.Context, id string) (string, error) {
	name, ok := f.names[id]
	if !ok {
		return "", errs.New("fakeResolver", errs.KindNotFound, errs.WithMessage("unbound"))
	}
	return name, nil
}

const (
	matchLive = "ec517b6c-6ed8-4449-ad9b-0a1dbbbf8fb9,9860e748-1f53-45ed-9a3f-2eeb46550083," +
		"13605dbb-fb95-4373-8354-dbce8272086c,1729839678453," +
		"c22ca89b-50db-4a90-84d3-25daf31de9db,54963ddf-ddc6-41b6-a7d1-3e2b76f531c0," +
		"93f346fd-c921-4f67-b4c3-64fe1f466140"
)

func newResolverForMatch() *fakeResolver {
	return &fakeResolver{names: map[string]string{
		"9860e748-1f53-45ed-9a3f-2eeb46550083": "FOOTBALL",
		"13605dbb-fb95-4373-8354-dbce8272086c": "UEFA Champions League",
		"c22ca89b-50db-4a90-84d3-25daf31de9db": "Bayern Munich",
		"54963ddf-ddc6-41b6-a7d1-3e2b76f531c0": "Juventus",
		"93f346fd-c921-4f67-b4c3-64fe1f466140": "LIVE",
	}}
}

func TestProjectorFiltersToPreAndLive(t *testing.T) {
	decoder := feed.NewDecoder(newResolverForMatch())
	p := NewProjector(decoder)

	payload := `{"odds":"` + matchLive + `\n\n"}`
	require.NoError(t, p.OnChange(context.Background(), "http://example.test", payload))

	current := p.Current()
	require.Len(t, current, 1)
	m, ok := current["ec517b6c-6ed8-4449-ad9b-0a1dbbbf8fb9"]
	require.True(t, ok)
	assert.Equal(t, feed.StatusLive, m.Status)
}

func TestProjectorPreservesPriorViewOnError(t *testing.T) {
	decoder := feed.NewDecoder(newResolverForMatch())
	p := NewProjector(decoder)

	require.NoError(t, p.OnChange(context.Background(), "http://example.test", `{"odds":"`+matchLive+`"}`))
	before := p.Current()

	err := p.OnChange(context.Background(), "http://example.test", `not json`)
	require.Error(t, err, "expected error for malformed payload")

	after := p.Current()
	assert.Len(t, after, len(before), "view changed after failed OnChange")
}

func TestProjectorCurrentIsDefensiveCopy(t *testing.T) {
	decoder := feed.NewDecoder(newResolverForMatch())
	p := NewProjector(decoder)
	_ = p.OnChange(context.Background(), "http://example.test", `{"odds":"`+matchLive+`"}`)

	copy1 := p.Current()
	delete(copy1, "ec517b6c-6ed8-4449-ad9b-0a1dbbbf8fb9")

	copy2 := p.Current()
	assert.Len(t, copy2, 1, "mutation of one copy leaked into projector state")
}
