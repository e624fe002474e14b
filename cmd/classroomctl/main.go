// Command classroomctl is a command line client for the classroom service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/classroom/internal/ctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := ctl.Execute(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}
