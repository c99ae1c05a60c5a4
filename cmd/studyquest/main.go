// Package main is the single-binary entrypoint for studyquest.
package main

import "github.com/studyquest/studyquest/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
