package dashboard

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"tweetsync/pkg/models"
	"tweetsync/pkg/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PostsQuery selects one page of record-set rows. Start and End are
// inclusive; a zero value leaves that side open.
type PostsQuery struct {
	Page  int
	Limit int
	Start time.Time
	End   time.Time
}

// PostRow is a record-set row as served by the rows endpoint
type PostRow struct {
	Line      int       `json:"line"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// PostsPage is one page of rows, newest first
type PostsPage struct {
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Total int       `json:"total"`
	Posts []PostRow `json:"posts"`
}

// ParsePostsQuery reads page, limit, startDate and endDate. A date-only
// endDate covers that whole day.
func ParsePostsQuery(page, limit, start, end string) (PostsQuery, error) {
	q := PostsQuery{Page: 1, Limit: defaultPageSize}

	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return q, fmt.Errorf("invalid page %q", page)
		}
		q.Page = n
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return q, fmt.Errorf("invalid limit %q", limit)
		}
		q.Limit = min(n, maxPageSize)
	}
	if start != "" {
		t, ok := storage.ParseTimestamp(start)
		if !ok {
			return q, fmt.Errorf("invalid startDate %q", start)
		}
		q.Start = t
	}
	if end != "" {
		t, ok := storage.ParseTimestamp(end)
		if !ok {
			return q, fmt.Errorf("invalid endDate %q", end)
		}
		if _, err := time.Parse(time.DateOnly, end); err == nil {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		q.End = t
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return q, fmt.Errorf("endDate is before startDate")
	}
	return q, nil
}

// PagePosts filters rows by q's window and returns the requested page
func PagePosts(rows []models.Row, q PostsQuery) PostsPage {
	var matched []models.Row
	for _, r := range rows {
		if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && r.Timestamp.After(q.End) {
			continue
		}
		matched = append(matched, r)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	out := PostsPage{Page: q.Page, Limit: q.Limit, Total: len(matched), Posts: []PostRow{}}
	from := (q.Page - 1) * q.Limit
	if from >= len(matched) {
		return out
	}
	to := min(from+q.Limit, len(matched))
	for _, r := range matched[from:to] {
		out.Posts = append(out.Posts, PostRow{Line: r.Line, Timestamp: r.Timestamp, Content: r.Content})
	}
	return out
}
