package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/expplan/internal/model"
)

func TestMatchID(t *testing.T) {
	ids := []string{"a1b2c3", "a1ffff", "b00000"}

	id, err := matchID("expense", "b0", ids)
	require.NoError(t, err)
	assert.Equal(t, "b00000", id)

	id, err = matchID("expense", "a1ffff", ids)
	require.NoError(t, err)
	assert.Equal(t, "a1ffff", id)

	_, err = matchID("expense", "a1", ids)
	assert.ErrorContains(t, err, "ambiguous")

	_, err = matchID("expense", "zz", ids)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = matchID("expense", " ", ids)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestFindCategoryByNameOrID(t *testing.T) {
	st := model.EmptyState()
	st.Categories = []model.Category{
		{ID: "3f2a9c", Name: "Groceries", Frequency: model.Weekly},
		{ID: "77b0d1", Name: "Rent", Frequency: model.Monthly},
	}

	c, err := findCategory(st, "groceries")
	require.NoError(t, err)
	assert.Equal(t, "3f2a9c", c.ID)

	c, err = findCategory(st, "77b")
	require.NoError(t, err)
	assert.Equal(t, "Rent", c.Name)

	_, err = findCategory(st, "Travel")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSortNewestFirstKeepsInputOrderForTies(t *testing.T) {
	in := []model.Expense{
		{ID: "old", Date: model.NewDate(2026, 1, 2)},
		{ID: "tie1", Date: model.NewDate(2026, 2, 1)},
		{ID: "tie2", Date: model.NewDate(2026, 2, 1)},
	}
	out := sortNewestFirst(in)
	assert.Equal(t, []string{"tie1", "tie2", "old"}, []string{out[0].ID, out[1].ID, out[2].ID})
	assert.Equal(t, "old", in[0].ID, "input is not reordered")
}

func TestValidateRetention(t *testing.T) {
	assert.NoError(t, validateRetention("0"))
	assert.NoError(t, validateRetention(" 30 "))
	assert.Error(t, validateRetention("-1"))
	assert.Error(t, validateRetention("lots"))
}
