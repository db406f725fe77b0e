//go:build !linux

package kdsplit

// prefaultRegion is a no-op outside Linux.
func prefaultRegion(data []byte) {}
