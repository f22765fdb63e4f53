//go:build !linux
// +build !linux

package rotate

import "os"

// hintSequentialWrite is a no-op outside Linux; Fadvise has no portable
// equivalent.
func hintSequentialWrite(_ *os.File) {}
