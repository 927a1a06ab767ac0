// Package logger is the structured logging layer used across tweetsync.
//
// It wraps zerolog behind a small Logger interface so packages can attach
// fields (session target, record-set path, row index) without importing
// zerolog directly, and so tests can swap in a TestLogger that records every
// message.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "uploader")
//	log.InfoWithFields("Row inserted", map[string]interface{}{"row": 3})
//
// Console output goes to stderr so command results printed on stdout stay
// pipeable. When Logging.File is set, JSON lines are appended to that file as
// well.
package logger
