// Package buildinfo holds build-time metadata injected by the linker.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata missing from the build.
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// GetVersion returns the build version or UnknownValue.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date or UnknownValue.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// Release returns the release name reported with telemetry events.
func (c *Context) Release() string {
	return "gallery-migrate@" + c.GetVersion()
}

// String implements fmt.Stringer.
func (c *Context) String() string {
	return fmt.Sprintf("gallery-migrate %s (built %s)", c.GetVersion(), c.GetBuildDate())
}
