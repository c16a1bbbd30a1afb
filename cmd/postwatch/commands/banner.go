package commands

import (
	"fmt"

	"github.com/postwatch/postwatch/logger"
	"github.com/postwatch/postwatch/version"
)

// printStartupBanner prints the user-friendly startup message
func printStartupBanner(verbosity int, dbPath string, port int) {
	green := "\033[32m"
	cyan := "\033[36m"
	bold := "\033[1m"
	reset := "\033[0m"

	versionInfo := version.Get()

	fmt.Printf("\n%s%spostwatch%s — job posting observation ledger\n\n", cyan, bold, reset)
	fmt.Printf("%s%s┌─ Info ──────────────────────────────────────────────┐%s\n", green, bold, reset)
	fmt.Printf("%s│%s Version:   %s (commit %s)\n", green, reset, versionInfo.Version, versionInfo.Short())
	fmt.Printf("%s│%s Built:     %s\n", green, reset, versionInfo.BuildTime)
	fmt.Printf("%s│%s Verbosity: %s\n", green, reset, logger.LevelName(verbosity))
	fmt.Printf("%s│%s Database:  %s\n", green, reset, dbPath)
	fmt.Printf("%s│%s Gateway:   http://localhost:%d\n", green, reset, port)
	fmt.Printf("%s%s└─────────────────────────────────────────────────────┘%s\n\n", green, bold, reset)
}
