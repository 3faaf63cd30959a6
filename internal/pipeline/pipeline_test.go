package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cardset/internal/curate"
	"github.com/ppiankov/cardset/internal/model"
	"github.com/ppiankov/cardset/internal/wiki"
)

func TestBuild_CarnivorousPlants(t *testing.T) {
	svc := carnivorousPlants()
	p := newTestPipeline(svc)
	builtAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	p.now = func() time.Time { return builtAt }

	set, err := p.Build(context.Background(), "Carnivorous Plants")
	require.NoError(t, err)

	assert.NotEmpty(t, set.RunID)
	assert.Equal(t, "Carnivorous Plants", set.Query)
	assert.Equal(t, "Carnivorous plants", set.Category)
	assert.Equal(t, model.FeedbackComplete, set.Feedback)
	assert.False(t, set.Truncated)
	assert.Equal(t, 4, set.MemberCount)
	assert.Equal(t, 4, set.PreFilterCount)
	assert.Equal(t, 3, set.CompleteCount)
	assert.Equal(t, curate.StrategyInstanceOfStrict, set.Strategy)
	assert.Equal(t, builtAt.UTC(), set.BuiltAt)

	var ids []string
	for _, c := range set.Cards {
		ids = append(ids, c.Entity.ID)
	}
	if diff := cmp.Diff([]string{"Q1", "Q2", "Q3"}, ids); diff != "" {
		t.Errorf("card order mismatch (-want +got):\n%s", diff)
	}

	require.NotNil(t, set.Cards[0].Image)
	assert.Equal(t, model.StrategyDirectFile, set.Cards[0].Image.Strategy)
	assert.Equal(t, "https://upload.example/drosera.jpg", set.Cards[0].Image.SourceURL)

	require.NotNil(t, set.Cards[1].Image)
	assert.Equal(t, model.StrategyGalleryTitle, set.Cards[1].Image.Strategy)

	assert.Nil(t, set.Cards[2].Image)
	assert.Equal(t, []string{"taxon", "Nepenthes"}, set.Cards[2].GlyphLabels)
	assert.Equal(t, 2, set.ImagesFound())

	assert.Equal(t, "Carnivorous plants", p.displayed.Get())
}

func TestBuild_EmptyQuery(t *testing.T) {
	svc := carnivorousPlants()
	p := newTestPipeline(svc)

	set, err := p.Build(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackNoResults, set.Feedback)
	assert.Empty(t, set.Category)
	assert.NotNil(t, set.Cards)
	assert.Empty(t, set.Cards)
	assert.Equal(t, model.CurationNone, set.Strategy)
	assert.Empty(t, svc.fetched)
}

func TestBuild_NoCategory(t *testing.T) {
	p := newTestPipeline(&fakeService{
		candidates: map[string][]model.CategoryCandidate{
			"zzz": {{Title: "Wikipedia articles needing clarification"}},
		},
	})

	set, err := p.Build(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackNoResults, set.Feedback)
	assert.Empty(t, set.Category)
	assert.Empty(t, p.displayed.Get())
}

func TestBuild_EmptyCategory(t *testing.T) {
	p := newTestPipeline(&fakeService{
		candidates: map[string][]model.CategoryCandidate{
			"Moons of Pluto": {{Title: "Moons of Pluto"}},
		},
	})

	set, err := p.Build(context.Background(), "Moons of Pluto")
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackNoResults, set.Feedback)
	assert.Equal(t, "Moons of Pluto", set.Category)
	assert.Zero(t, set.MemberCount)
	assert.Empty(t, p.displayed.Get())
}

func TestBuild_TruncatesLargeCategory(t *testing.T) {
	members := make([]string, 90)
	entities := make(map[string]model.Entity, 90)
	for i := range members {
		title := fmt.Sprintf("Asteroid %d", i)
		members[i] = title
		entities[title] = model.Entity{ID: fmt.Sprintf("Q%d", 100+i), Labels: title, Descriptions: "asteroid"}
	}
	svc := &fakeService{
		candidates: map[string][]model.CategoryCandidate{"Asteroids": {{Title: "Asteroids"}}},
		members:    map[string][]string{"Asteroids": members},
		entities:   entities,
	}
	p := newTestPipeline(svc)

	set, err := p.Build(context.Background(), "Asteroids")
	require.NoError(t, err)

	assert.True(t, set.Truncated)
	assert.Equal(t, model.FeedbackTruncated, set.Feedback)
	assert.Equal(t, 90, set.MemberCount)
	assert.Equal(t, 75, set.PreFilterCount)
	require.Len(t, svc.fetched, 1)
	assert.Len(t, svc.fetched[0], 75)
	assert.Equal(t, "Asteroid 74", svc.fetched[0][74])
	assert.Len(t, set.Cards, 75)
	assert.Equal(t, model.CurationNone, set.Strategy)
}

func TestBuild_AtLimitIsNotTruncated(t *testing.T) {
	members := make([]string, 85)
	entities := make(map[string]model.Entity, 85)
	for i := range members {
		title := fmt.Sprintf("Comet %d", i)
		members[i] = title
		entities[title] = model.Entity{ID: fmt.Sprintf("Q%d", 200+i), Labels: title, Descriptions: "comet"}
	}
	p := newTestPipeline(&fakeService{
		candidates: map[string][]model.CategoryCandidate{"Comets": {{Title: "Comets"}}},
		members:    map[string][]string{"Comets": members},
		entities:   entities,
	})

	set, err := p.Build(context.Background(), "Comets")
	require.NoError(t, err)
	assert.False(t, set.Truncated)
	assert.Equal(t, model.FeedbackComplete, set.Feedback)
	assert.Len(t, set.Cards, 85)
}

func TestBuild_NothingComplete(t *testing.T) {
	p := newTestPipeline(&fakeService{
		candidates: map[string][]model.CategoryCandidate{"Mercury": {{Title: "Mercury"}}},
		members:    map[string][]string{"Mercury": {"Mercury (disambiguation)"}},
		entities: map[string]model.Entity{
			"Mercury (disambiguation)": {ID: "Q5", Descriptions: "Wikipedia disambiguation page"},
		},
	})

	set, err := p.Build(context.Background(), "Mercury")
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackNoResults, set.Feedback)
	assert.Equal(t, 1, set.PreFilterCount)
	assert.Zero(t, set.CompleteCount)
	assert.Empty(t, set.Cards)
}

func TestBuild_TransportErrors(t *testing.T) {
	tests := []struct {
		name string
		svc  *fakeService
		want string
	}{
		{
			name: "search",
			svc:  &fakeService{searchErr: errTransport},
			want: "resolve category",
		},
		{
			name: "members",
			svc: &fakeService{
				candidates: map[string][]model.CategoryCandidate{"Planets": {{Title: "Planets"}}},
				membersErr: errTransport,
			},
			want: "list members",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(tt.svc)

			set, err := p.Build(context.Background(), "Planets")
			require.Error(t, err)
			assert.Nil(t, set)
			assert.ErrorIs(t, err, errTransport)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuild_Cancelled(t *testing.T) {
	p := newTestPipeline(carnivorousPlants())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Build(ctx, "Carnivorous Plants")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_RecordsCurationMetric(t *testing.T) {
	p := newTestPipeline(carnivorousPlants())

	_, err := p.Build(context.Background(), "Carnivorous Plants")
	require.NoError(t, err)

	snap, err := p.Metrics().Snapshot()
	require.NoError(t, err)
	assert.NotEmpty(t, snap)
}

func TestCard(t *testing.T) {
	svc := carnivorousPlants()
	p := newTestPipeline(svc)

	card, err := p.Card(context.Background(), "Venus flytrap")
	require.NoError(t, err)
	assert.Equal(t, "Q2", card.Entity.ID)
	require.NotNil(t, card.Image)
	assert.Equal(t, "https://upload.example/dionaea.jpg", card.Image.SourceURL)

	card, err = p.Card(context.Background(), "Nepenthes")
	require.NoError(t, err)
	assert.Nil(t, card.Image)
	assert.NotEmpty(t, card.GlyphLabels)
}

func TestCard_NotFound(t *testing.T) {
	svc := carnivorousPlants()
	p := newTestPipeline(svc)

	_, err := p.Card(context.Background(), "Triffid")
	assert.ErrorIs(t, err, wiki.ErrNotFound)

	_, err = p.Card(context.Background(), "")
	assert.ErrorIs(t, err, wiki.ErrNotFound)
	assert.Len(t, svc.fetched, 1)
}

func TestSuggest(t *testing.T) {
	svc := &fakeService{
		subcats:  map[string][]string{"Citrus": {"Oranges", "Lemons"}},
		pageCats: map[string][]string{"Citrus": {"Edible fruits", "Citrus"}},
	}
	p := newTestPipeline(svc)

	got := p.Suggest(context.Background(), "Citrus")
	var names []string
	for _, s := range got {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"Oranges", "Lemons", "Edible fruits"}, names); diff != "" {
		t.Errorf("Suggest mismatch (-want +got):\n%s", diff)
	}
}

func TestSuggest_FailsClosed(t *testing.T) {
	p := newTestPipeline(&fakeService{
		subcats:    map[string][]string{"Citrus": {"Oranges"}},
		subcatsErr: errTransport,
	})

	got := p.Suggest(context.Background(), "Citrus")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNewPipeline(t *testing.T) {
	p, err := NewPipeline(model.DefaultConfig(), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, p.Metrics())
}
