package main

import "ethtracker/internal/cli"

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetBuildInfo(version, commit, buildTime)
	cli.Execute()
}
