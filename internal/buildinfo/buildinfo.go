// Package buildinfo holds build-time metadata kept apart from user configuration.
package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Set with -ldflags "-X github.com/plantcare-go/plantcare/internal/buildinfo.version=..."
var (
	version   string
	buildDate string
	commit    string
)

// Context contains build-time metadata.
type Context struct {
	Version   string
	BuildDate string
	Commit    string
	GoVersion string
}

// NewContext creates a Context from explicit values.
func NewContext(version, buildDate, commit string) *Context {
	return &Context{
		Version:   version,
		BuildDate: buildDate,
		Commit:    commit,
		GoVersion: runtime.Version(),
	}
}

var (
	current     *Context
	currentOnce sync.Once
)

// Current returns the metadata of the running binary. A missing commit is
// taken from the VCS stamp the Go toolchain embeds.
func Current() *Context {
	currentOnce.Do(func() {
		current = NewContext(version, buildDate, commit)
		if current.Commit != "" {
			return
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && len(s.Value) >= 7 {
					current.Commit = s.Value[:7]
				}
			}
		}
	})
	return current
}

// GetVersion returns the version or UnknownValue.
func (c *Context) GetVersion() string {
	if c == nil {
		return UnknownValue
	}
	return valueOrUnknown(c.Version)
}

// GetBuildDate returns the build date or UnknownValue.
func (c *Context) GetBuildDate() string {
	if c == nil {
		return UnknownValue
	}
	return valueOrUnknown(c.BuildDate)
}

// GetCommit returns the short commit hash or UnknownValue.
func (c *Context) GetCommit() string {
	if c == nil {
		return UnknownValue
	}
	return valueOrUnknown(c.Commit)
}

// Release is the identifier reported to error tracking, e.g. "plantcare@1.2.0".
func (c *Context) Release() string {
	return "plantcare@" + c.GetVersion()
}

func valueOrUnknown(v string) string {
	if v == "" {
		return UnknownValue
	}
	return v
}
