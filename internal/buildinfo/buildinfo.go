package buildinfo

import "runtime/debug"

var version = "dev"

// SetVersion allows build scripts to override the version information.
func SetVersion(v string) {
	if v == "" {
		return
	}
	version = v
}

// Version returns the semantic version or module version associated with the build.
func Version() string {
	if version != "dev" {
		return version
	}
	if info, ok := readBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// Commit returns the short VCS revision stamped by the Go toolchain, with a
// "+dirty" suffix for modified trees, or "" when unavailable.
func Commit() string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if revision != "" && modified {
		revision += "+dirty"
	}
	return revision
}

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo
