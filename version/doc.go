// Package version reports build information for the speakerid binary.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/speakerid/version.Version=1.0.0 \
//	  -X github.com/kbukum/speakerid/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/speakerid
//
// Unset fields fall back to the module build info.
package version
