// Package storage writes and reads local record sets.
//
// A record set is one CSV file per scrape session, named
//
//	<YYYY-MM-DD_HH-MM-SS>_tweets_1-<n>_<8 hex>.csv
//
// Files are written to a hidden temporary name and hard-linked into place,
// so a session never replaces an earlier file and a concurrent reader never
// sees a half-written one. The most recently modified file is the one the
// sync command picks up.
//
//	manager, err := storage.NewManager(cfg.Storage.Directory)
//	path, err := manager.Write(posts, includePosterDetails)
//	latest, err := manager.Latest()
//	rows, dropped, err := storage.ReadRows(latest)
package storage
