package main

import (
	"os"

	"github.com/avatolabs/go-olympus/internal/cli"
	"github.com/avatolabs/go-olympus/internal/utils/logging"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.WithError(err).Error("exited")
		os.Exit(1)
	}
}
