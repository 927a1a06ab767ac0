package twitter

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tweetsync/pkg/models"
)

// ProfileStats is what the poster-details lookup reads from a profile page
type ProfileStats struct {
	UserID    string
	Following string
	Followers string
}

// ParseTimeline extracts every tweet article in html, in page order.
// Promoted tweets are left out. base resolves relative links.
func ParseTimeline(html, base string) ([]models.Post, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse timeline: %w", err)
	}

	var posts []models.Post
	doc.Find(TweetArticle).Each(func(_ int, s *goquery.Selection) {
		if isPromoted(s) {
			return
		}
		posts = append(posts, parseArticle(s, base))
	})
	return posts, nil
}

func parseArticle(s *goquery.Selection, base string) models.Post {
	author := s.Find(TweetAuthor).First()
	text := s.Find(TweetText).First()

	p := models.Post{
		Name:      strings.TrimSpace(author.Find("span").First().Text()),
		Handle:    handleOf(author),
		Verified:  author.Find(VerifiedBadge).Length() > 0,
		Content:   strings.TrimSpace(richText(text)),
		Comments:  countOf(s.Find(ReplyCount).First()),
		Retweets:  countOf(s.Find(RetweetCount).First()),
		Likes:     countOf(s.Find(LikeCount).First()),
		Analytics: countOf(s.Find(AnalyticsLink).First()),
	}

	timeNode := s.Find(TweetTimestamp).First()
	p.Timestamp, _ = timeNode.Attr("datetime")

	s.Find(HashtagLink).Each(func(_ int, a *goquery.Selection) {
		if tag := strings.TrimSpace(a.Text()); tag != "" {
			p.Tags = append(p.Tags, tag)
		}
	})
	text.Find("a").Each(func(_ int, a *goquery.Selection) {
		if m := strings.TrimSpace(a.Text()); strings.HasPrefix(m, "@") {
			p.Mentions = append(p.Mentions, m)
		}
	})
	text.Find(EmojiImage).Each(func(_ int, img *goquery.Selection) {
		if alt, ok := img.Attr("alt"); ok && alt != "" {
			p.Emojis = append(p.Emojis, alt)
		}
	})

	if src, ok := s.Find(TweetAvatar).First().Attr("src"); ok {
		p.ProfileImage = src
	}

	href, ok := timeNode.Closest("a").Attr("href")
	if !ok {
		href, _ = s.Find(TweetLink).First().Attr("href")
	}
	p.Link = absoluteURL(base, href)
	p.ID = statusID(href)

	return p
}

// handleOf returns the first "@name" span of the author block
func handleOf(author *goquery.Selection) string {
	var handle string
	author.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		t := strings.TrimSpace(span.Text())
		if strings.HasPrefix(t, "@") && !strings.Contains(t, " ") {
			handle = t
			return false
		}
		return true
	})
	return handle
}

// countOf reads an engagement counter; an empty counter means zero
func countOf(s *goquery.Selection) string {
	if t := strings.TrimSpace(s.Text()); t != "" {
		return t
	}
	if label, ok := s.Attr("aria-label"); ok {
		if fields := strings.Fields(label); len(fields) > 0 && isCount(fields[0]) {
			return fields[0]
		}
	}
	return "0"
}

func isCount(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && c != ',' && c != '.' && c != 'K' && c != 'M' && c != 'B' {
			return false
		}
	}
	return s != ""
}

// richText flattens a tweet body, keeping emoji images as their alt text
func richText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, node *goquery.Selection) {
		switch goquery.NodeName(node) {
		case "#text":
			b.WriteString(node.Text())
		case "img":
			alt, _ := node.Attr("alt")
			b.WriteString(alt)
		case "br":
			b.WriteString("\n")
		default:
			b.WriteString(richText(node))
		}
	})
	return b.String()
}

func isPromoted(s *goquery.Selection) bool {
	promoted := false
	s.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		t := strings.TrimSpace(span.Text())
		if t == "Ad" || t == "Promoted" {
			promoted = true
			return false
		}
		return true
	})
	return promoted
}

// statusID returns the numeric id from a /<handle>/status/<id> link
func statusID(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "status" {
			return parts[i+1]
		}
	}
	return path.Base(u.Path)
}

// ParseProfileStats reads following and follower counts and the numeric
// user id from a profile page.
func ParseProfileStats(html string) (ProfileStats, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ProfileStats{}, fmt.Errorf("parse profile: %w", err)
	}

	var stats ProfileStats
	stats.Following = strings.TrimSpace(doc.Find(FollowingLink).First().Find("span").First().Text())
	stats.Followers = strings.TrimSpace(doc.Find(FollowersLink).First().Find("span").First().Text())

	if testID, ok := doc.Find(FollowButton).First().Attr("data-testid"); ok {
		if id, _, found := strings.Cut(testID, "-"); found {
			stats.UserID = id
		}
	}

	if stats.Following == "" && stats.Followers == "" {
		return stats, fmt.Errorf("profile counts not found")
	}
	return stats, nil
}
