package repository

import "errors"

// ErrNotFound is returned by writes that matched no row. Reads report a
// missing row as a nil entity instead.
var ErrNotFound = errors.New("record not found")

// ErrStatusChanged is returned by review writes whose status guard no longer
// matched, i.e. the review moved to another status since it was read.
var ErrStatusChanged = errors.New("review status changed")
