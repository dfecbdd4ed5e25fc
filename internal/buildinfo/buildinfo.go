package buildinfo

import "time"

// Set via -ldflags at build time
var (
	Version    = "dev"
	CommitHash string
	BuildTime  string
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// Fields returns the build metadata as a flat map for health output and startup logs
func Fields() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  CommitHash,
		"built":   BuildTime,
		"started": StartTime,
	}
}
