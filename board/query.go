package board

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/cppla/eventboard/models"
)

// NormalizeFilter trims the keyword and replaces unknown search modes and
// sort orders with their defaults.
func NormalizeFilter(f models.Filter) models.Filter {
	f.Keyword = strings.TrimSpace(f.Keyword)
	switch f.SearchMode {
	case models.SearchByTitle, models.SearchByAuthor:
	default:
		f.SearchMode = models.SearchByTitle
	}
	switch f.Sort {
	case models.SortNewest, models.SortOldest, models.SortMostViewed, models.SortByAuthor:
	default:
		f.Sort = models.SortNewest
	}
	return f
}

// Query filters then sorts rows into a new slice. lang drives the collation
// of the by-author order.
func Query(rows []models.Thread, f models.Filter, lang language.Tag) []models.Thread {
	f = NormalizeFilter(f)
	out := filterRows(rows, f.Keyword, f.SearchMode)
	sortRows(out, f.Sort, lang)
	return out
}

func filterRows(rows []models.Thread, keyword string, mode models.SearchMode) []models.Thread {
	out := make([]models.Thread, 0, len(rows))
	if keyword == "" {
		return append(out, rows...)
	}
	needle := strings.ToLower(keyword)
	for _, r := range rows {
		field := r.Title
		if mode == models.SearchByAuthor {
			field = r.Author
		}
		if strings.Contains(strings.ToLower(field), needle) {
			out = append(out, r)
		}
	}
	return out
}

func sortRows(rows []models.Thread, order models.SortOrder, lang language.Tag) {
	switch order {
	case models.SortOldest:
		slices.SortStableFunc(rows, compareOldest)
	case models.SortMostViewed:
		slices.SortStableFunc(rows, func(a, b models.Thread) int {
			if c := cmp.Compare(b.Views, a.Views); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})
	case models.SortByAuthor:
		// a Collator keeps scratch buffers; one per sort
		col := collate.New(lang)
		slices.SortStableFunc(rows, func(a, b models.Thread) int {
			if c := col.CompareString(a.Author, b.Author); c != 0 {
				return c
			}
			return compareNewest(a, b)
		})
	default:
		slices.SortStableFunc(rows, compareNewest)
	}
}

// compareNewest orders by date descending, then id descending.
func compareNewest(a, b models.Post) int {
	if c := strings.Compare(b.Date, a.Date); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// compareOldest orders by date ascending, then id ascending.
func compareOldest(a, b models.Post) int {
	return compareNewest(b, a)
}
