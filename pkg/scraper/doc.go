// Package scraper drives one collection session from login to a persisted
// record set.
//
// A Driver owns a single Engine for the lifetime of the session and moves
// through these states:
//
//	Idle -> Authenticating -> Scraping -> Completed | Interrupted -> Finalizing -> Done
//
// Authentication failures end in Failed without touching storage. Once the
// scrape loop starts, whatever was collected is always handed to the
// Persister, including an empty set and including partial results after an
// interrupt. The engine is closed on every path except after an interrupt,
// since a cancelled browser may already be gone.
//
// Usage:
//
//	engine, err := twitter.NewEngine(cfg, req, log)
//	if err != nil {
//	    return err
//	}
//	driver := scraper.New(engine, store, scraper.Options{ProgressInterval: 10})
//	result, err := driver.Run(ctx, req)
package scraper
