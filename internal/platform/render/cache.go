package render

import (
	"os"
	"time"
)

// fresh reports whether path exists and was modified within window. Any stat
// failure counts as a miss.
func fresh(path string, window time.Duration) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < window
}
