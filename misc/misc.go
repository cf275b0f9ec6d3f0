// Package misc keeps program identity helpers in a single place.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "hinc"

// set by the linker for release builds, otherwise derived from build info
var (
	version string
	gitHash string
)

var readBuildInfo = sync.OnceFunc(func() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if version == "" {
		version = bi.Main.Version
	}
	if gitHash == "" {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				gitHash = s.Value
				break
			}
		}
	}
})

func GetAppName() string {
	return appName
}

func GetVersion() string {
	readBuildInfo()
	if version == "" {
		return "(devel)"
	}
	return version
}

func GetGitHash() string {
	readBuildInfo()
	if gitHash == "" {
		return "unknown"
	}
	return gitHash
}
