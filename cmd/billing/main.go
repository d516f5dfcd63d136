package main

import (
	"billing/internal/cli"
	"billing/internal/logger"
)

func main() {
	// Replaced by the configured logger once the command loads its config.
	_ = logger.Setup(logger.DefaultConfig())

	cli.Execute()
}
