//go:build !windows

package fsenum

import (
	"os"
	"syscall"
)

// deviceID returns the device an entry lives on, or 0 when unknown.
func deviceID(info os.FileInfo) uint64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(stat.Dev)
	}
	return 0
}

// allocated returns the disk usage of an entry; st_blocks is in 512-byte units.
func allocated(info os.FileInfo) (uint64, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok || stat.Blocks < 0 {
		return 0, false
	}
	return uint64(stat.Blocks) * 512, true
}
