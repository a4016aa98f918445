package config

import "sync"

// ResetForTest clears the cached Load result so a test can load another file.
func ResetForTest() {
	loaded = nil
	loadErr = nil
	loadOnce = sync.Once{}
}
