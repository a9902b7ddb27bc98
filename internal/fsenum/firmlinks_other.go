//go:build !darwin

package fsenum

// firmlinks is empty outside darwin.
func firmlinks() map[string]struct{} {
	return nil
}
