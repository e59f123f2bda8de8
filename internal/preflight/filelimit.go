package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors covers the watcher, the cache database and the log
// file with room to spare.
const MinFileDescriptors = 256

// CheckFileDescriptors checks the soft open file limit.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{
		Name:     "file_descriptors",
		Required: false,
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusWarn
		result.Message = "cannot check file descriptor limit"
		result.Details = err.Error()
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", rLimit.Cur, MinFileDescriptors)
	if rLimit.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "Run 'ulimit -n 1024' before 'songbook serve --watch'"
		return result
	}

	result.Status = StatusPass
	return result
}
