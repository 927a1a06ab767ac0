package request

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetsync/pkg/auth"
	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/logger"
)

type scriptedPrompter struct {
	answers map[string]string
	asked   []string
}

func (p *scriptedPrompter) Prompt(label string) (string, error) {
	p.asked = append(p.asked, label)
	if v, ok := p.answers[label]; ok {
		return v, nil
	}
	return "", errors.New("no answer")
}

func (p *scriptedPrompter) PromptSecret(label string) (string, error) {
	return p.Prompt(label)
}

func withCreds(in Inputs) Inputs {
	in.User = "collector"
	in.Password = "pw"
	return in
}

func useTestLogger(t *testing.T) *logger.TestLogger {
	tl := logger.NewTestLogger()
	logger.SetLogger(tl)
	t.Cleanup(func() { logger.SetLogger(nil) })
	return tl
}

func TestResolveTargets(t *testing.T) {
	useTestLogger(t)

	tests := []struct {
		name      string
		in        Inputs
		wantMode  TargetMode
		wantValue string
		wantErr   string
	}{
		{name: "username strips at sign", in: Inputs{Username: Option{"@golang", true}}, wantMode: TargetUsername, wantValue: "golang"},
		{name: "hashtag strips hash", in: Inputs{Hashtag: Option{"#go", true}}, wantMode: TargetHashtag, wantValue: "go"},
		{name: "query", in: Inputs{Query: Option{"gophers lang:en", true}}, wantMode: TargetQuery, wantValue: "gophers lang:en"},
		{name: "bookmarks", in: Inputs{Bookmarks: true}, wantMode: TargetBookmarks},
		{name: "none", in: Inputs{}, wantErr: "missing target"},
		{name: "two targets", in: Inputs{Username: Option{"a", true}, Hashtag: Option{"b", true}}, wantErr: "ambiguous target: --username, --hashtag"},
		{name: "target plus bookmarks", in: Inputs{Query: Option{"q", true}, Bookmarks: true}, wantErr: "ambiguous target"},
		{name: "blank explicit value", in: Inputs{Hashtag: Option{"  ", true}}, wantErr: "--hashtag requires a non-empty value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Resolve(withCreds(tt.in), Defaults{}, nil, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, req.Target)
			assert.Equal(t, tt.wantValue, req.TargetValue)
		})
	}
}

func TestResolveTargetErrorsComeBeforePrompts(t *testing.T) {
	useTestLogger(t)
	p := &scriptedPrompter{answers: map[string]string{"Username": "u", "Password": "p"}}

	_, err := Resolve(Inputs{Username: Option{"a", true}, Query: Option{"b", true}}, Defaults{}, nil, p)
	require.Error(t, err)
	assert.Empty(t, p.asked)
}

func TestResolveOrder(t *testing.T) {
	tl := useTestLogger(t)

	_, err := Resolve(withCreds(Inputs{Hashtag: Option{"go", true}, Latest: true, Top: true}), Defaults{}, nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))

	req, err := Resolve(withCreds(Inputs{Hashtag: Option{"go", true}, Top: true}), Defaults{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, OrderTop, req.Order)

	req, err = Resolve(withCreds(Inputs{Username: Option{"go", true}, Latest: true}), Defaults{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, OrderUnspecified, req.Order)
	assert.True(t, tl.HasMessage("Order only applies"))
}

func TestResolveLimit(t *testing.T) {
	useTestLogger(t)
	base := Inputs{Username: Option{"go", true}}

	req, err := Resolve(withCreds(base), Defaults{DefaultTweets: 50}, nil, nil)
	require.NoError(t, err)
	assert.True(t, req.Limit.IsDefault())
	n, bounded := req.Limit.Max()
	assert.True(t, bounded)
	assert.Equal(t, 50, n)

	in := base
	in.Tweets, in.TweetsSet = 7, true
	req, err = Resolve(withCreds(in), Defaults{DefaultTweets: 50}, nil, nil)
	require.NoError(t, err)
	n, _ = req.Limit.Max()
	assert.Equal(t, 7, n)
	assert.False(t, req.Limit.IsDefault())

	in.NoTweetsLimit = true
	req, err = Resolve(withCreds(in), Defaults{}, nil, nil)
	require.NoError(t, err)
	assert.True(t, req.Limit.IsUnbounded())
	assert.False(t, req.Limit.Reached(1_000_000))

	in = base
	in.Tweets, in.TweetsSet = 0, true
	_, err = Resolve(withCreds(in), Defaults{}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--tweets must be a positive number")
}

func TestResolveHeadless(t *testing.T) {
	useTestLogger(t)
	base := withCreds(Inputs{Bookmarks: true})

	req, err := Resolve(base, Defaults{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, HeadlessUnspecified, req.Headless)
	assert.True(t, req.Headless.Enabled())

	req, err = Resolve(base, Defaults{Headless: "No"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, HeadlessOff, req.Headless)
	assert.False(t, req.Headless.Enabled())

	in := base
	in.Headless = "yes"
	req, err = Resolve(in, Defaults{Headless: "no"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, HeadlessOn, req.Headless)

	in.Headless = "maybe"
	_, err = Resolve(in, Defaults{}, nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func TestResolveAddOptions(t *testing.T) {
	tl := useTestLogger(t)

	in := withCreds(Inputs{Bookmarks: true, Add: " PD , bogus,"})
	req, err := Resolve(in, Defaults{}, nil, nil)
	require.NoError(t, err)
	assert.True(t, req.PosterDetails)

	warns := tl.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, "bogus", warns[0].Fields["token"])

	req, err = Resolve(withCreds(Inputs{Bookmarks: true, Add: "pdx"}), Defaults{}, nil, nil)
	require.NoError(t, err)
	assert.False(t, req.PosterDetails)
}

func TestResolveCredentialPrecedence(t *testing.T) {
	useTestLogger(t)
	manager, store := auth.NewMockManager()
	require.NoError(t, store.Store(&auth.Account{Username: "stored", Password: "stored-pw", Mail: "s@example.com", TOTPSecret: "TOTP"}))

	t.Run("flags beat defaults", func(t *testing.T) {
		in := Inputs{Bookmarks: true, User: "flag", Password: "flag-pw", Mail: "f@example.com"}
		req, err := Resolve(in, Defaults{Username: "env", Password: "env-pw", Mail: "e@example.com"}, manager, nil)
		require.NoError(t, err)
		assert.Equal(t, Credentials{Username: "flag", Password: "flag-pw", Mail: "f@example.com"}, req.Credentials)
	})

	t.Run("defaults beat store", func(t *testing.T) {
		req, err := Resolve(Inputs{Bookmarks: true}, Defaults{Username: "env", Password: "env-pw"}, manager, nil)
		require.NoError(t, err)
		assert.Equal(t, "env", req.Credentials.Username)
		assert.Equal(t, "env-pw", req.Credentials.Password)
	})

	t.Run("store fills gaps", func(t *testing.T) {
		req, err := Resolve(Inputs{Bookmarks: true}, Defaults{}, manager, nil)
		require.NoError(t, err)
		assert.Equal(t, "stored", req.Credentials.Username)
		assert.Equal(t, "stored-pw", req.Credentials.Password)
		assert.Equal(t, "s@example.com", req.Credentials.Mail)
		assert.Equal(t, "TOTP", req.Credentials.TOTPSecret)
	})

	t.Run("store looked up by known username", func(t *testing.T) {
		req, err := Resolve(Inputs{Bookmarks: true, User: "stored"}, Defaults{}, manager, nil)
		require.NoError(t, err)
		assert.Equal(t, "stored-pw", req.Credentials.Password)
	})
}

func TestResolvePromptsLast(t *testing.T) {
	useTestLogger(t)
	p := &scriptedPrompter{answers: map[string]string{"Username": "typed", "Password": "typed-pw"}}
	manager, _ := auth.NewMockManager()

	req, err := Resolve(Inputs{Bookmarks: true}, Defaults{}, manager, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Username", "Password"}, p.asked)
	assert.Equal(t, "typed", req.Credentials.Username)
	assert.Equal(t, "typed-pw", req.Credentials.Password)
	assert.Empty(t, req.Credentials.Mail, "mail is never prompted")
}

func TestResolveMissingCredentials(t *testing.T) {
	useTestLogger(t)

	_, err := Resolve(Inputs{Bookmarks: true, User: "u"}, Defaults{}, nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
	assert.Contains(t, err.Error(), "password is required")

	p := &scriptedPrompter{answers: map[string]string{"Username": "", "Password": "x"}}
	_, err = Resolve(Inputs{Bookmarks: true}, Defaults{}, nil, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username is required")
}

func TestLimitString(t *testing.T) {
	assert.Equal(t, "10", Bounded(10).String())
	assert.Equal(t, "50 (default)", DefaultBounded(50).String())
	assert.Equal(t, "unbounded", Unbounded().String())
	assert.True(t, Bounded(2).Reached(2))
	assert.False(t, Bounded(2).Reached(1))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "@golang", (&ScrapeRequest{Target: TargetUsername, TargetValue: "golang"}).Describe())
	assert.Equal(t, "#go", (&ScrapeRequest{Target: TargetHashtag, TargetValue: "go"}).Describe())
	assert.Equal(t, "bookmarks", (&ScrapeRequest{Target: TargetBookmarks}).Describe())
}
