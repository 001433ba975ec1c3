// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Point Guard.
//
// Usage:
//
//	go run . [flags]
//	./pointguard [flags]
//
// This launches the Point Guard CLI. See --help for options.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/TheKiteEatingTree/pointguard/ui/cli"
)

// version is set at build time using -ldflags, e.g.:
// go build -ldflags "-X main.version=1.2.3"
var version = "dev"

// main is the entrypoint for the Point Guard CLI.
func main() {
	if os.Getenv("POINTGUARD_SHOW_VERSION") == "1" {
		fmt.Fprintf(os.Stderr, "Point Guard version: %s\n", version)
	}

	if err := cli.Execute(); err != nil {
		log.Printf("Point Guard CLI error: %v", err)
		os.Exit(1)
	}
}
