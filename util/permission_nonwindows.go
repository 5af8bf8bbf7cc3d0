//go:build !windows

package util

import "os"

// RestrictDir limits access to the directory to its owner
func RestrictDir(dir string) error {
	return os.Chmod(dir, 0700)
}
