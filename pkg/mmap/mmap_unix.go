//go:build linux || darwin

package mmap

import (
	"golang.org/x/sys/unix"
)

// mmap wraps the mmap system call
func mmap(fd int, length int, writable bool) ([]byte, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	return unix.Mmap(fd, 0, length, prot, unix.MAP_SHARED)
}

// munmap wraps the munmap system call
func munmap(b []byte) error {
	return unix.Munmap(b)
}

// madvise wraps the madvise system call
func madvise(b []byte, advice int) error {
	return unix.Madvise(b, advice)
}

// Memory advice flags
const (
	MadvSequential = unix.MADV_SEQUENTIAL //nolint:stylecheck
	MadvWillneed   = unix.MADV_WILLNEED   //nolint:stylecheck
)
