package storage

import "errors"

// Common client storage errors
var (
	// ErrIdentityNotFound indicates that the device identity was never generated
	ErrIdentityNotFound = errors.New("client identity not found")

	// ErrNoCurrentProject indicates that no project was selected
	ErrNoCurrentProject = errors.New("current project not set")
)
