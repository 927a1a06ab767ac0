package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"tweetsync/pkg/auth"
	"tweetsync/pkg/config"
	"tweetsync/pkg/logger"
	"tweetsync/pkg/request"
	"tweetsync/pkg/scraper"
	"tweetsync/pkg/storage"
	"tweetsync/pkg/twitter"
	"tweetsync/pkg/ui"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect posts into a new record set",
	Long: `Log in with a browser session and collect posts from exactly one target:
a profile (--username), a hashtag (--hashtag), a search (--query) or your
bookmarks (--bookmarks).

Credentials come from --user/--password, then TWITTER_USERNAME and
TWITTER_PASSWORD (environment, .env or config file), then the account stored
with 'tweetsync auth login', and finally an interactive prompt.

Press Ctrl+C once to stop early and keep what was collected.`,
	Example: `  # Latest 100 posts tagged #golang
  tweetsync scrape --hashtag golang --latest -t 100

  # Everything on a profile, with poster follower counts
  tweetsync scrape -u golang --no_tweets_limit --add pd

  # Top results for a search, with a visible browser
  tweetsync scrape -q "go generics" --top --headlessState no`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	addScrapeFlags(scrapeCmd.Flags())
	rootCmd.AddCommand(scrapeCmd)
}

func addScrapeFlags(f *pflag.FlagSet) {
	f.StringP("username", "u", "", "collect posts from this profile")
	f.String("hashtag", "", "collect posts with this hashtag")
	f.StringP("query", "q", "", "collect posts matching this search")
	f.Bool("bookmarks", false, "collect your bookmarks")
	f.Bool("latest", false, "order hashtag/search results by recency")
	f.Bool("top", false, "order hashtag/search results by popularity")
	f.IntP("tweets", "t", 50, "number of posts to collect")
	f.String("no_tweets_limit", "", "collect until the timeline runs dry")
	f.Lookup("no_tweets_limit").NoOptDefVal = "true"
	f.StringP("add", "a", "", "extra data to capture, comma separated (pd: poster details)")
	f.String("mail", "", "account email, used if the site asks to confirm identity")
	f.String("user", "", "login username")
	f.String("password", "", "login password")
	f.String("headlessState", "", "run the browser headless: yes or no")
}

// joinOptionalValues rewrites "--no_tweets_limit X" as "--no_tweets_limit=X".
// pflag only binds an optional value given with "=", and the flag's value
// never matters, only its presence.
func joinOptionalValues(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return append(out, args[i:]...)
		}
		if a == "--no_tweets_limit" && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			a += "=" + args[i+1]
			i++
		}
		out = append(out, a)
	}
	return out
}

func stringOption(f *pflag.FlagSet, name string) request.Option {
	v, _ := f.GetString(name)
	return request.Option{Value: v, Set: f.Changed(name)}
}

// scrapeInputs maps command flags to resolver inputs
func scrapeInputs(f *pflag.FlagSet) request.Inputs {
	in := request.Inputs{
		Username:      stringOption(f, "username"),
		Hashtag:       stringOption(f, "hashtag"),
		Query:         stringOption(f, "query"),
		TweetsSet:     f.Changed("tweets"),
		NoTweetsLimit: f.Changed("no_tweets_limit"),
	}
	in.Bookmarks, _ = f.GetBool("bookmarks")
	in.Latest, _ = f.GetBool("latest")
	in.Top, _ = f.GetBool("top")
	in.Tweets, _ = f.GetInt("tweets")
	in.Add, _ = f.GetString("add")
	in.Mail, _ = f.GetString("mail")
	in.User, _ = f.GetString("user")
	in.Password, _ = f.GetString("password")
	in.Headless, _ = f.GetString("headlessState")
	return in
}

func prompter() auth.Prompter {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return auth.NewTerminalPrompter()
	}
	return auth.NoPrompter{}
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, nil)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	var accounts request.AccountSource
	if manager, err := auth.NewManager(); err == nil {
		accounts = manager
	} else {
		log.WithError(err).Debug("Credential manager unavailable, skipping stored accounts")
	}

	req, err := request.Resolve(scrapeInputs(cmd.Flags()), request.DefaultsFromConfig(cfg), accounts, prompter())
	if err != nil {
		return err
	}

	store, err := storage.NewManager(cfg.Storage.Directory)
	if err != nil {
		return err
	}

	ui.PrintBanner()
	ui.PrintInfo("Target", req.Describe())
	ui.PrintInfo("Limit", req.Limit.String())
	ui.PrintInfo("Output", store.Dir())

	return scrape(cmd, cfg, req, store, log)
}

func scrape(cmd *cobra.Command, cfg *config.Config, req *request.ScrapeRequest, store *storage.Manager, log logger.Logger) error {
	total, _ := req.Limit.Max()
	progress := ui.NewProgress("scrape", total)
	notifier := ui.NewNotifier(notify)

	driver := scraper.New(twitter.NewEngine(cfg, req, log), store, scraper.Options{
		ProgressInterval: cfg.Scrape.ProgressInterval,
		OnProgress: func(collected int, _ request.Limit) {
			progress.Update(collected)
		},
		Logger: log,
	})

	result, err := driver.Run(cmd.Context(), req)
	progress.Finish()
	if err != nil {
		notifier.SendError("Scrape failed", err.Error())
		return err
	}

	if result.Interrupted {
		ui.PrintWarning("Interrupted, kept posts collected so far")
	}
	if result.CollectionErr != nil {
		ui.PrintWarning("Collection stopped early", result.CollectionErr)
	}
	if result.Dropped > 0 {
		ui.PrintInfo("Dropped", fmt.Sprintf("%d posts without timestamp or content", result.Dropped))
	}
	if result.Path == "" {
		return nil
	}
	ui.PrintInfo("Record set", result.Path)
	notifier.SendSuccess("Scrape finished", fmt.Sprintf("%d posts from %s in %s",
		result.Collected(), req.Describe(), result.Duration.Round(time.Millisecond)))
	return nil
}
