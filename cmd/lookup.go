package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/expplan/internal/model"
)

// matchID resolves ref against ids: an exact id wins, otherwise ref must be
// the prefix of exactly one id.
func matchID(kind, ref string, ids []string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", model.NewValidationError(kind, "required")
	}
	var hits []string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			hits = append(hits, id)
		}
	}
	switch len(hits) {
	case 0:
		return "", fmt.Errorf("%s %q: %w", kind, ref, model.ErrNotFound)
	case 1:
		return hits[0], nil
	default:
		return "", fmt.Errorf("%s %q is ambiguous (%d matches)", kind, ref, len(hits))
	}
}

// findCategory accepts an id, an id prefix or a case-insensitive name.
func findCategory(st model.State, ref string) (model.Category, error) {
	for _, c := range st.Categories {
		if strings.EqualFold(c.Name, strings.TrimSpace(ref)) {
			return c, nil
		}
	}
	ids := make([]string, len(st.Categories))
	for i, c := range st.Categories {
		ids[i] = c.ID
	}
	id, err := matchID("category", ref, ids)
	if err != nil {
		return model.Category{}, err
	}
	c, _ := st.Category(id)
	return c, nil
}

func findExpense(st model.State, ref string) (model.Expense, error) {
	ids := make([]string, len(st.Expenses))
	for i, e := range st.Expenses {
		ids[i] = e.ID
	}
	id, err := matchID("expense", ref, ids)
	if err != nil {
		return model.Expense{}, err
	}
	for _, e := range st.Expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Expense{}, fmt.Errorf("expense %q: %w", ref, model.ErrNotFound)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
