package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/thrivegame/thrive-launcher-cli/internal/exitcodes"
)

// signalContext returns a context cancelled on the first interrupt so
// running operations can unwind cooperatively. A second interrupt exits
// immediately for users who do not want to wait for the bounded join.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
		<-ch
		os.Exit(exitcodes.Cancelled)
	}()
	return ctx, cancel
}
