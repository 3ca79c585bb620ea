package util

import (
	"os"
)

// Hostname returns the kernel reported host name
func Hostname() (string, error) {
	return os.Hostname()
}
