package twitter

import (
	"fmt"
	"net/url"
	"strings"

	"tweetsync/pkg/request"
)

const (
	// DefaultBaseURL is used when the config leaves base_url empty
	DefaultBaseURL = "https://x.com"

	loginPath     = "/i/flow/login"
	homePath      = "/home"
	bookmarksPath = "/i/bookmarks"
)

func normalizeBase(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return DefaultBaseURL
	}
	return base
}

// LoginURL is the start of the login flow
func LoginURL(base string) string {
	return normalizeBase(base) + loginPath
}

// HomeURL is the signed-in home timeline
func HomeURL(base string) string {
	return normalizeBase(base) + homePath
}

// ProfileURL is the public profile of handle
func ProfileURL(base, handle string) string {
	handle = SanitizeHandle(handle)
	if handle == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", normalizeBase(base), url.PathEscape(handle))
}

// TargetURL builds the page a session scrapes. Hashtag and query targets
// honour the order; profiles and bookmarks have no search tab.
func TargetURL(base string, req *request.ScrapeRequest) (string, error) {
	base = normalizeBase(base)

	switch req.Target {
	case request.TargetUsername:
		if !IsValidHandle(req.TargetValue) {
			return "", fmt.Errorf("invalid username %q", req.TargetValue)
		}
		return ProfileURL(base, req.TargetValue), nil

	case request.TargetHashtag:
		params := url.Values{}
		params.Set("src", "hashtag_click")
		addOrder(params, req.Order)
		tag := strings.TrimPrefix(strings.TrimSpace(req.TargetValue), "#")
		return fmt.Sprintf("%s/hashtag/%s?%s", base, url.PathEscape(tag), params.Encode()), nil

	case request.TargetQuery:
		params := url.Values{}
		params.Set("q", req.TargetValue)
		params.Set("src", "typed_query")
		addOrder(params, req.Order)
		return fmt.Sprintf("%s/search?%s", base, params.Encode()), nil

	case request.TargetBookmarks:
		return base + bookmarksPath, nil

	default:
		return "", fmt.Errorf("no target to scrape")
	}
}

func addOrder(params url.Values, order request.OrderMode) {
	switch order {
	case request.OrderLatest:
		params.Set("f", "live")
	case request.OrderTop:
		params.Set("f", "top")
	}
}

// IsValidHandle checks the X rules: 1-15 letters, digits or underscores
func IsValidHandle(handle string) bool {
	handle = SanitizeHandle(handle)
	if handle == "" || len(handle) > 15 {
		return false
	}
	for _, char := range handle {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}
	return true
}

// SanitizeHandle strips a leading @ and surrounding slashes or spaces
func SanitizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	return strings.Trim(handle, "/ ")
}

// absoluteURL resolves a link found in page HTML against base
func absoluteURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return normalizeBase(base) + href
}
