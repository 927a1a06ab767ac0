package request

import (
	"errors"
	"strings"

	"tweetsync/pkg/auth"
	"tweetsync/pkg/config"
	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/logger"
)

// Option is a string flag together with whether it was given at all, so an
// explicitly empty value can be told apart from an absent one.
type Option struct {
	Value string
	Set   bool
}

// Inputs are the raw scrape command inputs
type Inputs struct {
	Username  Option
	Hashtag   Option
	Query     Option
	Bookmarks bool

	Latest bool
	Top    bool

	Tweets        int
	TweetsSet     bool
	NoTweetsLimit bool

	Add string

	Mail     string
	User     string
	Password string
	Headless string
}

// Defaults are the values loaded from the environment, .env and config file
type Defaults struct {
	Mail          string
	Username      string
	Password      string
	Headless      string
	TOTPSecret    string
	DefaultTweets int
}

// DefaultsFromConfig extracts resolver defaults from loaded configuration
func DefaultsFromConfig(cfg *config.Config) Defaults {
	return Defaults{
		Mail:          cfg.Twitter.Mail,
		Username:      cfg.Twitter.Username,
		Password:      cfg.Twitter.Password,
		Headless:      cfg.Twitter.Headless,
		TOTPSecret:    cfg.Twitter.TOTPSecret,
		DefaultTweets: cfg.Scrape.DefaultTweets,
	}
}

// AccountSource is the stored-credential lookup; *auth.Manager satisfies it
type AccountSource interface {
	Retrieve(username string) (*auth.Account, error)
	RetrieveDefault() (*auth.Account, error)
}

// PosterDetailsToken is the --add token enabling poster-detail capture
const PosterDetailsToken = "pd"

// Resolve validates inputs and fills credentials. Target, order, limit and
// headless checks all run before any stored-credential lookup or prompt.
// accounts and prompter may be nil.
func Resolve(in Inputs, defaults Defaults, accounts AccountSource, prompter auth.Prompter) (*ScrapeRequest, error) {
	log := logger.GetLogger().WithField("component", "resolver")

	req := &ScrapeRequest{}

	target, value, err := resolveTarget(in)
	if err != nil {
		return nil, err
	}
	req.Target, req.TargetValue = target, value

	if in.Latest && in.Top {
		return nil, apperrors.Configuration("--latest and --top cannot be used together")
	}
	switch {
	case in.Latest:
		req.Order = OrderLatest
	case in.Top:
		req.Order = OrderTop
	}
	if req.Order != OrderUnspecified && target != TargetHashtag && target != TargetQuery {
		log.WithField("order", req.Order.String()).Warn("Order only applies to hashtag and query searches, ignoring")
		req.Order = OrderUnspecified
	}

	switch {
	case in.NoTweetsLimit:
		if in.TweetsSet {
			log.Debug("--no_tweets_limit given, ignoring --tweets")
		}
		req.Limit = Unbounded()
	case in.TweetsSet:
		if in.Tweets <= 0 {
			return nil, apperrors.Configuration("--tweets must be a positive number, got %d", in.Tweets)
		}
		req.Limit = Bounded(in.Tweets)
	default:
		n := defaults.DefaultTweets
		if n <= 0 {
			n = 50
		}
		req.Limit = DefaultBounded(n)
	}

	headlessRaw := defaults.Headless
	if in.Headless != "" {
		headlessRaw = in.Headless
	}
	headless, ok := ParseHeadless(headlessRaw)
	if !ok {
		return nil, apperrors.Configuration("invalid headless value %q (use yes or no)", headlessRaw)
	}
	req.Headless = headless

	for _, token := range strings.Split(in.Add, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		switch token {
		case "":
		case PosterDetailsToken:
			req.PosterDetails = true
		default:
			log.WithField("token", token).Warn("Unknown --add option, ignoring")
		}
	}

	creds, err := resolveCredentials(in, defaults, accounts, prompter)
	if err != nil {
		return nil, err
	}
	req.Credentials = creds

	return req, nil
}

func resolveTarget(in Inputs) (TargetMode, string, error) {
	type candidate struct {
		mode TargetMode
		flag string
		opt  Option
	}
	candidates := []candidate{
		{TargetUsername, "--username", in.Username},
		{TargetHashtag, "--hashtag", in.Hashtag},
		{TargetQuery, "--query", in.Query},
	}

	var chosen []string
	mode, value := TargetMode(0), ""
	for _, c := range candidates {
		if !c.opt.Set {
			continue
		}
		chosen = append(chosen, c.flag)
		mode, value = c.mode, strings.TrimSpace(c.opt.Value)
		if value == "" {
			return 0, "", apperrors.Configuration("%s requires a non-empty value", c.flag)
		}
	}
	if in.Bookmarks {
		chosen = append(chosen, "--bookmarks")
		mode, value = TargetBookmarks, ""
	}

	switch len(chosen) {
	case 0:
		return 0, "", apperrors.Configuration("missing target: use one of --username, --hashtag, --query or --bookmarks")
	case 1:
	default:
		return 0, "", apperrors.Configuration("ambiguous target: %s given, use only one", strings.Join(chosen, ", "))
	}

	if mode == TargetUsername {
		value = strings.TrimPrefix(value, "@")
	}
	if mode == TargetHashtag {
		value = strings.TrimPrefix(value, "#")
	}
	return mode, value, nil
}

func resolveCredentials(in Inputs, defaults Defaults, accounts AccountSource, prompter auth.Prompter) (Credentials, error) {
	creds := Credentials{
		Username:   firstNonEmpty(in.User, defaults.Username),
		Password:   firstNonEmpty(in.Password, defaults.Password),
		Mail:       firstNonEmpty(in.Mail, defaults.Mail),
		TOTPSecret: defaults.TOTPSecret,
	}

	if (creds.Username == "" || creds.Password == "") && accounts != nil {
		var stored *auth.Account
		var err error
		if creds.Username != "" {
			stored, err = accounts.Retrieve(creds.Username)
		} else {
			stored, err = accounts.RetrieveDefault()
		}
		switch {
		case err == nil && stored != nil:
			if creds.Username == "" {
				creds.Username = stored.Username
			}
			creds.Password = firstNonEmpty(creds.Password, stored.Password)
			creds.Mail = firstNonEmpty(creds.Mail, stored.Mail)
			creds.TOTPSecret = firstNonEmpty(creds.TOTPSecret, stored.TOTPSecret)
		case err != nil && !errors.Is(err, auth.ErrCredentialsNotFound):
			logger.GetLogger().WithError(err).Debug("Stored credential lookup failed")
		}
	}

	if prompter == nil {
		prompter = auth.NoPrompter{}
	}

	if creds.Username == "" {
		v, err := prompter.Prompt("Username")
		if err != nil {
			return creds, apperrors.Wrap(apperrors.ErrorTypeConfiguration, err, "username is required")
		}
		creds.Username = v
	}
	if creds.Password == "" {
		v, err := prompter.PromptSecret("Password")
		if err != nil {
			return creds, apperrors.Wrap(apperrors.ErrorTypeConfiguration, err, "password is required")
		}
		creds.Password = v
	}

	if creds.Username == "" {
		return creds, apperrors.Configuration("username is required")
	}
	if creds.Password == "" {
		return creds, apperrors.Configuration("password is required")
	}
	return creds, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
