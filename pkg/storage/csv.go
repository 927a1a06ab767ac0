package storage

import (
	"strconv"
	"strings"

	"tweetsync/pkg/models"
)

// Column names of a record set
const (
	ColName         = "Name"
	ColHandle       = "Handle"
	ColTimestamp    = "Timestamp"
	ColVerified     = "Verified"
	ColContent      = "Content"
	ColComments     = "Comments"
	ColRetweets     = "Retweets"
	ColLikes        = "Likes"
	ColAnalytics    = "Analytics"
	ColTags         = "Tags"
	ColMentions     = "Mentions"
	ColEmojis       = "Emojis"
	ColProfileImage = "Profile Image"
	ColTweetLink    = "Tweet Link"
	ColTweetID      = "Tweet ID"
	ColTweeterID    = "Tweeter ID"
	ColFollowing    = "Following"
	ColFollowers    = "Followers"
)

var baseColumns = []string{
	ColName, ColHandle, ColTimestamp, ColVerified, ColContent,
	ColComments, ColRetweets, ColLikes, ColAnalytics,
	ColTags, ColMentions, ColEmojis,
	ColProfileImage, ColTweetLink, ColTweetID,
}

var posterColumns = []string{ColTweeterID, ColFollowing, ColFollowers}

// Header returns the column row
func Header(includePosterDetails bool) []string {
	cols := append([]string(nil), baseColumns...)
	if includePosterDetails {
		cols = append(cols, posterColumns...)
	}
	return cols
}

// Record flattens a post into a row matching Header. List fields are space
// separated.
func Record(p models.Post, includePosterDetails bool) []string {
	rec := []string{
		p.Name,
		p.Handle,
		p.Timestamp,
		strconv.FormatBool(p.Verified),
		p.Content,
		p.Comments,
		p.Retweets,
		p.Likes,
		p.Analytics,
		strings.Join(p.Tags, " "),
		strings.Join(p.Mentions, " "),
		strings.Join(p.Emojis, " "),
		p.ProfileImage,
		p.Link,
		p.ID,
	}
	if includePosterDetails {
		var d models.PosterDetails
		if p.Poster != nil {
			d = *p.Poster
		}
		rec = append(rec, d.UserID, d.Following, d.Followers)
	}
	return rec
}
