// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import "syscall"

// Errors inotify reports that end a watch, and some that are only logged.
var (
	fatalErrnos  = []syscall.Errno{syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE}
	benignErrnos = []syscall.Errno{syscall.EPERM, syscall.EACCES}
)
