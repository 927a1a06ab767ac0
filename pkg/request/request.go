// Package request turns raw command-line inputs, configured defaults,
// stored credentials and interactive prompts into one immutable
// ScrapeRequest.
package request

import (
	"fmt"
	"strconv"
	"strings"
)

// TargetMode selects which timeline a session scrapes
type TargetMode int

const (
	TargetUsername TargetMode = iota + 1
	TargetHashtag
	TargetQuery
	TargetBookmarks
)

func (t TargetMode) String() string {
	switch t {
	case TargetUsername:
		return "username"
	case TargetHashtag:
		return "hashtag"
	case TargetQuery:
		return "query"
	case TargetBookmarks:
		return "bookmarks"
	default:
		return "none"
	}
}

// OrderMode selects the search tab for hashtag and query targets
type OrderMode int

const (
	OrderUnspecified OrderMode = iota
	OrderLatest
	OrderTop
)

func (o OrderMode) String() string {
	switch o {
	case OrderLatest:
		return "latest"
	case OrderTop:
		return "top"
	default:
		return "unspecified"
	}
}

type limitKind int

const (
	limitDefault limitKind = iota
	limitBounded
	limitUnbounded
)

// Limit is the post cap of a session. The zero value is an invalid default
// bound; build one with Bounded, Unbounded or DefaultBounded.
type Limit struct {
	kind limitKind
	n    int
}

// Bounded is a cap the operator asked for explicitly
func Bounded(n int) Limit { return Limit{kind: limitBounded, n: n} }

// Unbounded means the operator asked for no cap
func Unbounded() Limit { return Limit{kind: limitUnbounded} }

// DefaultBounded is the cap applied when the operator said nothing
func DefaultBounded(n int) Limit { return Limit{kind: limitDefault, n: n} }

// Max returns the cap and whether one applies
func (l Limit) Max() (int, bool) {
	if l.kind == limitUnbounded {
		return 0, false
	}
	return l.n, true
}

// Reached reports whether collected posts hit the cap
func (l Limit) Reached(collected int) bool {
	n, bounded := l.Max()
	return bounded && collected >= n
}

func (l Limit) IsUnbounded() bool { return l.kind == limitUnbounded }
func (l Limit) IsDefault() bool   { return l.kind == limitDefault }

func (l Limit) String() string {
	switch l.kind {
	case limitUnbounded:
		return "unbounded"
	case limitDefault:
		return fmt.Sprintf("%d (default)", l.n)
	default:
		return strconv.Itoa(l.n)
	}
}

// HeadlessMode is the browser visibility preference
type HeadlessMode int

const (
	HeadlessUnspecified HeadlessMode = iota
	HeadlessOn
	HeadlessOff
)

// Enabled resolves the preference; unspecified runs headless
func (h HeadlessMode) Enabled() bool {
	return h != HeadlessOff
}

func (h HeadlessMode) String() string {
	switch h {
	case HeadlessOn:
		return "yes"
	case HeadlessOff:
		return "no"
	default:
		return "unspecified"
	}
}

// ParseHeadless accepts yes/no/true/false/1/0 in any case. Empty input is
// HeadlessUnspecified.
func ParseHeadless(v string) (HeadlessMode, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return HeadlessUnspecified, true
	case "yes", "true", "1":
		return HeadlessOn, true
	case "no", "false", "0":
		return HeadlessOff, true
	default:
		return HeadlessUnspecified, false
	}
}

// Credentials is the login used by the session
type Credentials struct {
	Username   string
	Password   string
	Mail       string
	TOTPSecret string
}

// ScrapeRequest is the fully resolved description of one session. Treat it
// as read-only once Resolve returns it.
type ScrapeRequest struct {
	Credentials   Credentials
	Target        TargetMode
	TargetValue   string
	Order         OrderMode
	Limit         Limit
	PosterDetails bool
	Headless      HeadlessMode
}

// Describe renders the target for logs and terminal output
func (r *ScrapeRequest) Describe() string {
	switch r.Target {
	case TargetUsername:
		return "@" + r.TargetValue
	case TargetHashtag:
		return "#" + r.TargetValue
	case TargetQuery:
		return fmt.Sprintf("%q", r.TargetValue)
	case TargetBookmarks:
		return "bookmarks"
	default:
		return "unknown target"
	}
}
