package board

import "github.com/cppla/eventboard/models"

// Paginate cuts the 1-indexed page out of rows. Total is always len(rows);
// pages past the end, page < 1 and pageSize < 1 yield no rows.
func Paginate(rows []models.Thread, page, pageSize int) models.Page {
	out := models.Page{Rows: []models.Thread{}, Total: len(rows)}
	if page < 1 || pageSize < 1 || page-1 >= TotalPages(len(rows), pageSize) {
		return out
	}
	start := (page - 1) * pageSize
	end := start + min(pageSize, len(rows)-start)
	out.Rows = append(out.Rows, rows[start:end]...)
	return out
}

// PaginatePinned pulls up to pinnedCap pinned rows out of the paged sequence
// and puts them ahead of every page. Total counts only the rows that are
// paged; pinned rows past the cap stay in the sequence.
func PaginatePinned(rows []models.Thread, page, pageSize, pinnedCap int) models.Page {
	pinned := make([]models.Thread, 0, max(pinnedCap, 0))
	rest := make([]models.Thread, 0, len(rows))
	for _, r := range rows {
		if r.Pinned && len(pinned) < pinnedCap {
			pinned = append(pinned, r)
			continue
		}
		rest = append(rest, r)
	}

	out := Paginate(rest, page, pageSize)
	out.Rows = append(pinned, out.Rows...)
	return out
}

// TotalPages is the page count for total rows at pageSize.
func TotalPages(total, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}
