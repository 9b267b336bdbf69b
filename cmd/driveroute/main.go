// Command driveroute files new Google Drive items into label folders.
package main

import (
	"os"

	"github.com/custodia-labs/driveroute/internal/adapters/driving/cli"
)

// version is injected with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
