package model

import (
	"regexp"
	"strings"
)

// MaxNameLength bounds project and file names.
const MaxNameLength = 100

var (
	projectNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	fileNameRe    = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// ValidProjectName reports whether name may be used as a Project name.
func ValidProjectName(name string) bool {
	return len(name) > 0 && len(name) <= MaxNameLength && projectNameRe.MatchString(name)
}

// ValidFileName reports whether name may be used as a File name.
// Dots are allowed for extensions but never as a path component.
func ValidFileName(name string) bool {
	if len(name) == 0 || len(name) > MaxNameLength || !fileNameRe.MatchString(name) {
		return false
	}
	return name != "." && !strings.Contains(name, "..")
}
