// Package version reports the meetscribe build.
//
// Version and Commit are set with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/meetscribe/version.Version=1.2.0" ./cmd/meetscribe
//
// When Commit is unset it is read from the embedded VCS build settings.
package version
