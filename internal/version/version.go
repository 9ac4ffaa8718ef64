// Package version holds build metadata set with -ldflags.
package version

var (
	Version = "dev"
	Commit  = "none"
)

// Name is the agent name reported by the API
const Name = "hivedeck-monitor"
