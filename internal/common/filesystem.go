// Package common provides shared interfaces and utilities used across the
// test-runner packages.
//
//nolint:revive // var-naming: package name "common" is intentional for shared internal utilities
package common

import (
	"os"
)

// FileSystem covers the mutating operations run directory setup needs.
// The interface allows for easy mocking in tests.
type FileSystem interface {
	// MkdirAll creates a directory and all necessary parents with the specified permissions
	MkdirAll(path string, perm os.FileMode) error

	// Symlink creates newname as a symbolic link to oldname
	Symlink(oldname, newname string) error

	// Remove removes a single file or empty directory
	Remove(path string) error
}

// DefaultFileSystem implements FileSystem using standard os package functions
type DefaultFileSystem struct{}

// NewDefaultFileSystem creates a new DefaultFileSystem
func NewDefaultFileSystem() *DefaultFileSystem {
	return &DefaultFileSystem{}
}

// MkdirAll creates a directory and all necessary parents.
// Already-existing directories are not an error.
func (f *DefaultFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Symlink creates newname as a symbolic link to oldname
func (f *DefaultFileSystem) Symlink(oldname, newname string) error {
	return os.Symlink(oldname, newname)
}

// Remove removes a single file or empty directory
func (f *DefaultFileSystem) Remove(path string) error {
	return os.Remove(path)
}
