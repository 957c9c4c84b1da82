// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import "syscall"

// Errors ReadDirectoryChangesW reports that end a watch, and some that are
// only logged.
var (
	fatalErrnos  = []syscall.Errno{errnoTooManyOpenFiles, errnoInvalidHandle, errnoNotEnoughMemory}
	benignErrnos = []syscall.Errno{syscall.ERROR_ACCESS_DENIED, syscall.ERROR_FILE_NOT_FOUND}
)
