// cmd/geotag/main.go
package main

import (
	"github.com/kamataryo/geotag/internal/logger"
	"github.com/kamataryo/geotag/pkg/cli"
)

func main() {
	// Initialize logger
	logger.Init()

	// Execute CLI
	cli.Execute()
}
