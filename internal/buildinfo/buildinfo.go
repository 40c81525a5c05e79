// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/garyellow/ptc-frontdesk/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/garyellow/ptc-frontdesk/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/garyellow/ptc-frontdesk/internal/buildinfo.BuildDate=...
var BuildDate = ""

// Service is the name reported in logs and error events.
const Service = "ptc-frontdesk"

// Release identifies this build for error tracking, e.g. "ptc-frontdesk@1.4.0".
// Falls back to the short commit, then "dev".
func Release() string {
	switch {
	case Version != "":
		return Service + "@" + Version
	case len(Commit) >= 7:
		return Service + "@" + Commit[:7]
	case Commit != "":
		return Service + "@" + Commit
	default:
		return Service + "@dev"
	}
}

// Fields returns the metadata as log fields, omitting unset values.
func Fields() map[string]any {
	f := map[string]any{"release": Release()}
	if Commit != "" {
		f["commit"] = Commit
	}
	if BuildDate != "" {
		f["build_date"] = BuildDate
	}
	return f
}
