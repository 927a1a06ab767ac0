package twitter

// DOM selectors for x.com. The markup changes often; keep every selector
// here so a breakage is a one-file fix.

const (
	// Timeline
	FeedContainer = `[data-testid="primaryColumn"]`
	TweetArticle  = `article[data-testid="tweet"]`

	// Tweet fields
	TweetText      = `[data-testid="tweetText"]`
	TweetAuthor    = `[data-testid="User-Name"]`
	TweetAvatar    = `[data-testid="Tweet-User-Avatar"] img`
	TweetTimestamp = `time`
	TweetLink      = `a[href*="/status/"]`
	VerifiedBadge  = `[data-testid="icon-verified"]`
	HashtagLink    = `a[href*="src=hashtag_click"]`
	AnalyticsLink  = `a[href*="/analytics"]`
	EmojiImage     = `img[src*="emoji"]`

	// Engagement
	ReplyCount   = `[data-testid="reply"]`
	RetweetCount = `[data-testid="retweet"]`
	LikeCount    = `[data-testid="like"]`

	// Profile page
	FollowingLink = `a[href$="/following"]`
	FollowersLink = `a[href$="/verified_followers"], a[href$="/followers"]`
	FollowButton  = `[data-testid$="-follow"], [data-testid$="-unfollow"]`

	// Login flow
	UsernameInput  = `input[autocomplete="username"]`
	ChallengeInput = `input[data-testid="ocfEnterTextTextInput"]`
	PasswordInput  = `input[name="password"]`
	LoginAlert     = `[role="alert"]`
	HomeIndicator  = `[data-testid="SideNav_NewTweet_Button"], [data-testid="AppTabBar_Home_Link"]`
)
