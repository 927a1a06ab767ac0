// Package checkpoint persists the upload ledger: for each record set, the
// natural keys of rows the remote store has already confirmed.
//
// Re-running sync against the same file consults the ledger and skips rows
// that were inserted before, so an interrupted or partially rejected sync
// can simply be run again.
//
// The ledger lives in a platform-specific data directory unless a path is
// configured:
//   - Linux: $XDG_DATA_HOME/tweetsync or ~/.local/share/tweetsync
//   - macOS: ~/Library/Application Support/tweetsync
//   - Windows: %APPDATA%/tweetsync
//
// Saves are atomic (temp file, fsync, rename).
package checkpoint
