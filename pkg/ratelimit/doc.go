// Package ratelimit paces outbound calls to the remote store.
//
// It is a thin layer over golang.org/x/time/rate so callers depend on a
// two-method interface and tests can swap in an unlimited limiter.
//
//	limiter := ratelimit.PerSecond(cfg.Remote.RequestsPerSecond)
//	for _, row := range rows {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return err // cancelled
//	    }
//	    send(row)
//	}
package ratelimit
