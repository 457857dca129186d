// Package version holds the release version, set at build time with
// -ldflags "-X github.com/vanderheijden86/helpview/pkg/version.Version=v1.2.3".
package version

// Version is the release version of hv and helpd.
var Version = "dev"
