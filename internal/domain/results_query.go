package domain

import (
	"sort"
	"strings"
	"time"
)

// ResultSort names an ordering of the results view.
type ResultSort string

const (
	SortScoreAsc  ResultSort = "score_asc"
	SortScoreDesc ResultSort = "score_desc"
	SortDateAsc   ResultSort = "asc"
	SortDateDesc  ResultSort = "desc"
)

// ParseResultSort accepts the admin UI values plus date_asc/date_desc spellings.
// An empty value selects score_asc, the results screen default.
func ParseResultSort(raw string) (ResultSort, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(SortScoreAsc):
		return SortScoreAsc, nil
	case string(SortScoreDesc):
		return SortScoreDesc, nil
	case string(SortDateAsc), "date_asc":
		return SortDateAsc, nil
	case string(SortDateDesc), "date_desc":
		return SortDateDesc, nil
	default:
		return "", Invalid("sort", "must be one of score_asc, score_desc, asc, desc")
	}
}

// ResultQuery is the admin's filter and sort selection. The same query drives
// both the listing and the export so a download matches what is on screen.
type ResultQuery struct {
	Name  string
	Email string
	Date  string // YYYY-MM-DD, compared in UTC
	Sort  ResultSort
}

// Validate checks the date format.
func (q ResultQuery) Validate() error {
	if q.Date == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, q.Date); err != nil {
		return Invalid("date", "must be formatted as YYYY-MM-DD")
	}
	return nil
}

// Apply filters and sorts results without modifying the input slice.
func (q ResultQuery) Apply(results []Result) []Result {
	name := strings.ToLower(q.Name)
	email := strings.ToLower(q.Email)

	out := make([]Result, 0, len(results))
	for _, r := range results {
		if name != "" && !strings.Contains(strings.ToLower(r.User.Name), name) {
			continue
		}
		if email != "" && !strings.Contains(strings.ToLower(r.User.Email), email) {
			continue
		}
		if q.Date != "" && r.CreatedAt.UTC().Format(time.DateOnly) != q.Date {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch q.Sort {
		case SortScoreDesc:
			return out[i].Score > out[j].Score
		case SortDateAsc:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case SortDateDesc:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		default:
			return out[i].Score < out[j].Score
		}
	})
	return out
}

// Page returns the 1-based page of size n. n <= 0 returns everything.
func Page(results []Result, page, n int) []Result {
	if n <= 0 {
		return results
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * n
	if start >= len(results) {
		return []Result{}
	}
	end := start + n
	if end > len(results) {
		end = len(results)
	}
	return results[start:end]
}
