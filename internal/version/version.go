package version

// Set at build time via -ldflags.
var (
	GitTag    = "unknown"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
