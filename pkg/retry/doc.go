// Package retry re-runs an operation with backoff until it succeeds, the
// error is classified as permanent, the attempt budget runs out or the
// context is cancelled.
//
// tweetsync only retries browser navigation. Remote uploads are never
// retried here; a rejected row is reported and the next sync handles it.
//
//	err := retry.Do(func() error {
//	    return chromedp.Run(ctx, chromedp.Navigate(url))
//	}, &retry.Config{
//	    MaxAttempts: 3,
//	    Backoff:     retry.DefaultExponentialBackoff(),
//	    Context:     ctx,
//	})
package retry
