package util

import (
	"os"
	"sync"
)

var (
	hostIdentOnce  sync.Once
	hostIdentValue string
)

// HostIdentity returns a process-wide token identifying this node for the
// "u" format directive, resolved once lazily on first use rather than held
// as a mutable package global initialized at startup.
func HostIdentity() string {
	hostIdentOnce.Do(func() {
		name, err := os.Hostname()
		if err != nil || name == "" {
			name = "unknown-host"
		}
		hostIdentValue = name
	})
	return hostIdentValue
}
