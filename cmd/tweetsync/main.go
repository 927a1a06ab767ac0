package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/logger"
	"tweetsync/pkg/ui"
)

// exitForced is used when a second signal arrives during shutdown
const exitForced = 130

func main() {
	ctx, stop := interruptContext()

	rootCmd.SetArgs(joinOptionalValues(os.Args[1:]))
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		ui.PrintError("Error", err)
	}
	os.Exit(apperrors.ExitCode(err))
}

// interruptContext cancels on the first SIGINT/SIGTERM so the running
// command can persist what it has. A second signal exits immediately.
func interruptContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigs:
		case <-ctx.Done():
			return
		}
		logger.Warn("Interrupt received, finishing up (press Ctrl+C again to abort)")
		cancel()
		<-sigs
		os.Exit(exitForced)
	}()

	return ctx, func() {
		signal.Stop(sigs)
		cancel()
	}
}
