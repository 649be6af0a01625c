package archive

import (
	"sort"

	"github.com/lottoml/lotto-engine/internal/errs"
	"github.com/lottoml/lotto-engine/internal/models"
)

// Sort orders for List
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Snapshot is an immutable view of the archive at one point in time.
// Draws are ordered by draw number ascending and must not be modified.
type Snapshot struct {
	draws []models.Draw
}

func newSnapshot(draws []models.Draw) *Snapshot {
	return &Snapshot{draws: draws}
}

// Len returns the number of draws in the snapshot
func (s *Snapshot) Len() int { return len(s.draws) }

// Draws returns the ordered draws. The slice is shared and read-only.
func (s *Snapshot) Draws() []models.Draw { return s.draws }

func (s *Snapshot) index(drawNo int) (int, bool) {
	i := sort.Search(len(s.draws), func(i int) bool { return s.draws[i].DrawNo >= drawNo })
	return i, i < len(s.draws) && s.draws[i].DrawNo == drawNo
}

// Get returns the draw with the given number
func (s *Snapshot) Get(drawNo int) (models.Draw, error) {
	i, ok := s.index(drawNo)
	if !ok {
		return models.Draw{}, errs.New(errs.KindNotFound, "Draw %d not found", drawNo)
	}
	return s.draws[i], nil
}

// Latest returns the draw with the highest number
func (s *Snapshot) Latest() (models.Draw, error) {
	if len(s.draws) == 0 {
		return models.Draw{}, errs.New(errs.KindEmptyArchive, "No draws in archive. Please sync data first.")
	}
	return s.draws[len(s.draws)-1], nil
}

// Recent returns the most recent k draws in ascending order. k is clamped to
// the archive size; k <= 0 selects the whole archive.
func (s *Snapshot) Recent(k int) []models.Draw {
	if k <= 0 || k >= len(s.draws) {
		return s.draws
	}
	return s.draws[len(s.draws)-k:]
}

// ListQuery selects one page of draws
type ListQuery struct {
	Page     int
	Limit    int
	Sort     string
	FromDraw int
	ToDraw   int
}

// Page is one page of a List result
type Page struct {
	Results    []models.Draw
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// List returns a stable page of draws filtered by draw number range
func (s *Snapshot) List(q ListQuery) (Page, error) {
	if q.Page < 1 {
		return Page{}, errs.New(errs.KindValidation, "page must be at least 1")
	}
	if q.Limit < 1 {
		return Page{}, errs.New(errs.KindValidation, "limit must be at least 1")
	}
	if q.Sort == "" {
		q.Sort = SortDesc
	}
	if q.Sort != SortAsc && q.Sort != SortDesc {
		return Page{}, errs.New(errs.KindValidation, "sort must be asc or desc")
	}
	if q.FromDraw < 0 || q.ToDraw < 0 {
		return Page{}, errs.New(errs.KindValidation, "draw filters must be positive")
	}

	lo, hi := 0, len(s.draws)
	if q.FromDraw > 0 {
		lo, _ = s.index(q.FromDraw)
	}
	if q.ToDraw > 0 {
		hi, _ = s.index(q.ToDraw + 1)
	}
	if hi < lo {
		hi = lo
	}
	window := s.draws[lo:hi]
	total := len(window)

	p := Page{Page: q.Page, Limit: q.Limit, Total: total, Results: []models.Draw{}}
	p.TotalPages = (total + q.Limit - 1) / q.Limit

	offset := (q.Page - 1) * q.Limit
	if offset >= total {
		return p, nil
	}
	end := offset + q.Limit
	if end > total {
		end = total
	}
	if q.Sort == SortAsc {
		p.Results = append(p.Results, window[offset:end]...)
		return p, nil
	}
	for i := total - 1 - offset; i >= total-end; i-- {
		p.Results = append(p.Results, window[i])
	}
	return p, nil
}

// merge returns a new ordered slice with updates applied over base
func merge(base []models.Draw, updates []models.Draw) []models.Draw {
	byNo := make(map[int]models.Draw, len(updates))
	for _, d := range updates {
		byNo[d.DrawNo] = d
	}
	out := make([]models.Draw, 0, len(base)+len(updates))
	for _, d := range base {
		if u, ok := byNo[d.DrawNo]; ok {
			out = append(out, u)
			delete(byNo, d.DrawNo)
			continue
		}
		out = append(out, d)
	}
	for _, d := range byNo {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DrawNo < out[j].DrawNo })
	return out
}
