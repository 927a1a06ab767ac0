package models

import (
	"strings"
	"time"
)

// Post is one collected tweet. Timestamp and Content are the only fields the
// sync step reads; the rest are display fields carried into the record set.
type Post struct {
	Name         string
	Handle       string
	Timestamp    string
	Verified     bool
	Content      string
	Comments     string
	Retweets     string
	Likes        string
	Analytics    string
	Tags         []string
	Mentions     []string
	Emojis       []string
	ProfileImage string
	Link         string
	ID           string

	// Poster is set only when poster-detail capture was requested.
	Poster *PosterDetails
}

// PosterDetails are the profile figures captured with the "pd" option
type PosterDetails struct {
	UserID    string
	Following string
	Followers string
}

// Valid reports whether the post has both a timestamp and content
func (p Post) Valid() bool {
	return strings.TrimSpace(p.Timestamp) != "" && strings.TrimSpace(p.Content) != ""
}

// Row is the subset of a record set that gets synchronized
type Row struct {
	// Line is the physical line the record starts on, counting the header
	// as line 1.
	Line      int
	Timestamp time.Time
	Content   string
}

// UploadStatus is the result of sending one row to the remote store
type UploadStatus string

const (
	StatusInserted UploadStatus = "inserted"
	StatusRejected UploadStatus = "rejected"
	StatusSkipped  UploadStatus = "skipped"
)

// UploadOutcome records what happened to a single row
type UploadOutcome struct {
	Row    Row
	Status UploadStatus
	Detail string
}
