// Package main provides the entry point for the lotwatch CLI tool.
package main

import (
	"github.com/lotwatch/lotwatch/cmd/lotwatch/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
