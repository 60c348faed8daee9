// Package version reports build metadata. Release builds set the variables
// with -ldflags "-X .../internal/version.Version=v1.2.3"; other builds fall
// back to the VCS stamp the Go toolchain embeds.
package version

import "runtime/debug"

//nolint:gochecknoglobals // overwritten by ldflags
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "" {
				Commit = shortRevision(s.Value)
			}
		case "vcs.time":
			if Date == "" {
				Date = s.Value
			}
		}
	}
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String renders the build metadata on one line.
func String() string {
	commit, date := Commit, Date
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return Version + " (commit " + commit + ", built " + date + ")"
}
