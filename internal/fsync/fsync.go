// Package fsync flushes file contents to stable storage.
package fsync

import "os"

// Data makes the contents of f durable. Where the platform allows, it skips
// flushing metadata such as modification times.
//
// A failed Data call leaves the file in an unknown state: the kernel may
// already have marked the dirty pages clean. Callers must not retry and
// carry on; they should stop writing to f.
func Data(f *os.File) error {
	return fdatasync(f)
}
