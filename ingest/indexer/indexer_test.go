package indexer

import (
	"context"
	"errors"
	"testing"

	"surveyrag/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	summaries map[uuid.UUID]types.IndexedRecord
	contents  map[uuid.UUID]types.IndexedRecord
	failAfter int // fail IndexDocument after this many successful calls, -1 = never
	calls     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		summaries: make(map[uuid.UUID]types.IndexedRecord),
		contents:  make(map[uuid.UUID]types.IndexedRecord),
		failAfter: -1,
	}
}

func (f *fakeStore) IndexDocument(ctx context.Context, rec types.IndexedRecord) error {
	if f.failAfter >= 0 && f.calls >= f.failAfter {
		return errors.New("store unavailable")
	}
	f.calls++
	// Both sides land together or not at all, mirroring the transaction.
	f.summaries[rec.DocID] = rec
	f.contents[rec.DocID] = rec
	return nil
}

func (f *fakeStore) Search(ctx context.Context, vec []float32, topK int) ([]types.Hit, error) {
	return nil, nil
}

func (f *fakeStore) GetContents(ctx context.Context, ids []uuid.UUID) ([]types.ResolvedContent, error) {
	var out []types.ResolvedContent
	for _, id := range ids {
		rec, ok := f.contents[id]
		if !ok {
			return nil, errors.New("not found")
		}
		out = append(out, types.ResolvedContent{DocID: id, Kind: rec.Kind, Content: rec.Content})
	}
	return out, nil
}

func (f *fakeStore) Verify(ctx context.Context) (int, error) { return 0, nil }

type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("embedding service down")
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func pairsFixture() []types.Summarized {
	return []types.Summarized{
		{Element: types.Element{Kind: types.KindText, Content: "Revenue grew 12% year over year"}, Summary: "revenue growth"},
		{Element: types.Element{Kind: types.KindTable, Content: "<table><tr><td>Revenue</td><td>$12B</td></tr></table>"}, Summary: "revenue table"},
		{Element: types.Element{Kind: types.KindImage, Content: "aGVsbG8="}, Summary: "a chart"},
	}
}

func TestIndexGeneratesUniqueIDsAndRoundTrips(t *testing.T) {
	st := newFakeStore()
	x := New(st, &fakeEmbedder{})

	pairs := pairsFixture()
	require.NoError(t, x.Index(context.Background(), pairs))

	require.Len(t, st.summaries, len(pairs))
	require.Len(t, st.contents, len(pairs))

	// Every id in the vector side has a content entry with the element that
	// produced the indexed summary.
	for id, sum := range st.summaries {
		rec, ok := st.contents[id]
		require.True(t, ok, "dangling summary entry %s", id)
		assert.Equal(t, sum.Summary, rec.Summary)

		resolved, err := st.GetContents(context.Background(), []uuid.UUID{id})
		require.NoError(t, err)
		assert.Equal(t, rec.Content, resolved[0].Content)
		assert.Equal(t, rec.Kind, resolved[0].Kind)
	}
}

func TestIndexPersistsKindTag(t *testing.T) {
	st := newFakeStore()
	x := New(st, &fakeEmbedder{})

	require.NoError(t, x.Index(context.Background(), pairsFixture()))

	kinds := make(map[types.ElementKind]int)
	for _, rec := range st.contents {
		kinds[rec.Kind]++
	}
	assert.Equal(t, 1, kinds[types.KindText])
	assert.Equal(t, 1, kinds[types.KindTable])
	assert.Equal(t, 1, kinds[types.KindImage])
}

func TestIndexAbortsOnStoreFailure(t *testing.T) {
	st := newFakeStore()
	st.failAfter = 1
	x := New(st, &fakeEmbedder{})

	err := x.Index(context.Background(), pairsFixture())
	require.Error(t, err)

	// The successful write stays, nothing half-written follows it.
	assert.Len(t, st.summaries, 1)
	assert.Len(t, st.contents, 1)
}

func TestIndexAbortsOnEmbeddingFailure(t *testing.T) {
	st := newFakeStore()
	x := New(st, &fakeEmbedder{fail: true})

	err := x.Index(context.Background(), pairsFixture())
	require.Error(t, err)
	assert.Empty(t, st.summaries)
}

func TestIndexEmptyBatch(t *testing.T) {
	st := newFakeStore()
	x := New(st, &fakeEmbedder{})
	require.NoError(t, x.Index(context.Background(), nil))
	assert.Empty(t, st.summaries)
}
