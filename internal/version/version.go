// Package version exposes build metadata stamped in via -ldflags.
package version

import (
	"runtime/debug"
	"strings"
)

var (
	// Version is the release version (set via -ldflags).
	Version = ""
	// Commit is the git commit hash (set via -ldflags).
	Commit = ""
)

type Info struct {
	Version string
	Commit  string
}

// Resolve returns build metadata, falling back to the module build info
// embedded by the toolchain when the ldflags were not stamped.
func Resolve() Info {
	info := Info{Version: Version, Commit: Commit}

	if info.Version == "" || info.Commit == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
				info.Version = bi.Main.Version
			}
			if info.Commit == "" {
				for _, s := range bi.Settings {
					if s.Key == "vcs.revision" {
						info.Commit = s.Value
						break
					}
				}
			}
		}
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

func String() string {
	info := Resolve()
	var b strings.Builder
	b.WriteString(info.Version)
	if info.Commit != "" {
		b.WriteString(" (")
		b.WriteString(shortCommit(info.Commit))
		b.WriteString(")")
	}
	return b.String()
}

func shortCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}
