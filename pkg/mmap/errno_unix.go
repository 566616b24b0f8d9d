//go:build linux || darwin

package mmap

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isNoMem(err error) bool {
	return errors.Is(err, unix.ENOMEM)
}
