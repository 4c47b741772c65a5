package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactServiceAddAndList(t *testing.T) {
	s := NewInMemoryFactService()
	ctx := context.Background()

	id, err := s.AddFact(ctx, Fact{UserID: "tony", Text: "prefers dark roast coffee", Category: "preference"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = s.AddFact(ctx, Fact{UserID: "tony", Text: "sister's name is Maria", Category: "relationship", Entity: "Maria"})
	require.NoError(t, err)
	_, err = s.AddFact(ctx, Fact{UserID: "pepper", Text: "allergic to peanuts", Category: "personal_info"})
	require.NoError(t, err)

	facts, err := s.Facts(ctx, "tony", "")
	require.NoError(t, err)
	assert.Len(t, facts, 2)

	prefs, err := s.Facts(ctx, "tony", "preference")
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, "prefers dark roast coffee", prefs[0].Text)
	assert.Equal(t, 1.0, prefs[0].Confidence)
	assert.Equal(t, "conversation", prefs[0].Source)
	assert.True(t, prefs[0].Active)
}

func TestFactServiceSearchMatchesTextAndEntity(t *testing.T) {
	s := NewInMemoryFactService()
	ctx := context.Background()

	_, err := s.AddFact(ctx, Fact{UserID: "tony", Text: "sister's name is Maria", Entity: "Maria"})
	require.NoError(t, err)
	_, err = s.AddFact(ctx, Fact{UserID: "tony", Text: "drives a red car"})
	require.NoError(t, err)

	byText, err := s.SearchFacts(ctx, "tony", "red")
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, "drives a red car", byText[0].Text)

	byEntity, err := s.SearchFacts(ctx, "tony", "maria")
	require.NoError(t, err)
	assert.Len(t, byEntity, 1)
}

func TestFactServiceUpdateAndDeactivate(t *testing.T) {
	s := NewInMemoryFactService()
	ctx := context.Background()

	id, err := s.AddFact(ctx, Fact{UserID: "tony", Text: "lives in Malibu"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateFact(ctx, id, "lives in New York"))
	facts, err := s.Facts(ctx, "tony", "")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "lives in New York", facts[0].Text)
	assert.False(t, facts[0].UpdatedAt.IsZero())

	require.NoError(t, s.DeactivateFact(ctx, id))
	facts, err = s.Facts(ctx, "tony", "")
	require.NoError(t, err)
	assert.Empty(t, facts)

	assert.ErrorIs(t, s.UpdateFact(ctx, 99, "x"), ErrFactNotFound)
}

func TestVectorServiceSimilaritySearchOrdersByScore(t *testing.T) {
	s := NewInMemoryVectorService()
	ctx := context.Background()

	_, err := s.AddMemory(ctx, "the lights in the living room are blue", map[string]interface{}{"room": "living"})
	require.NoError(t, err)
	_, err = s.AddMemory(ctx, "meeting with the board tomorrow morning", nil)
	require.NoError(t, err)
	id3, err := s.AddMemory(ctx, "blue lights look great at night", nil)
	require.NoError(t, err)
	require.NotEmpty(t, id3)

	results, err := s.SimilaritySearch(ctx, "blue lights", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.Contains(t, r.Record.Text, "blue")
	}
}

func TestVectorServiceLimitAndNoMatch(t *testing.T) {
	s := NewInMemoryVectorService()
	ctx := context.Background()

	for _, text := range []string{"alpha beta", "alpha gamma", "alpha delta"} {
		_, err := s.AddMemory(ctx, text, nil)
		require.NoError(t, err)
	}

	limited, err := s.SimilaritySearch(ctx, "alpha", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := s.SimilaritySearch(ctx, "omega", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
