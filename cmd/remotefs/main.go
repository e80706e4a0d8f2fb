// remotefs is a command-line client for remote file servers that only
// publish browser-style HTML listings.
//
// Usage:
//
//	remotefs connect https://files.example.com/files/alpha --user ada
//	remotefs ls /docs
//	remotefs put ./report.pdf /docs/report.pdf
//	remotefs serve            # JSON-RPC bridge on stdio
//	remotefs devserver ./data # local server speaking the same wire contract
//
// Settings come from .env and REMOTEFS_* variables; see the config package.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logrus.WithField("error", err).Debug("remotefs: command failed")
		os.Exit(1)
	}
}
