// Package version records the tool version stamped into output
// headers. Release builds override it with -ldflags.
package version

var Version = "0.4.0-dev"
