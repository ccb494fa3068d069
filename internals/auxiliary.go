package internals

import (
	"errors"
	"os"
)

// contains tests whether the given slice contains a particular string item
func contains(set []string, item string) bool {
	for _, element := range set {
		if item == element {
			return true
		}
	}
	return false
}

// compareBytes determines whether bytes slices as and bs have the same content
func compareBytes(as, bs []byte) bool {
	if len(as) != len(bs) {
		return false
	}
	for i, a := range as {
		if a != bs[i] {
			return false
		}
	}
	return true
}

// isPermissionError determines whether the given error indicates a permission error
func isPermissionError(err error) bool {
	return errors.Is(err, os.ErrPermission)
}
