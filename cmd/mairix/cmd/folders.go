package cmd

import "path/filepath"

// joinFolder resolves a configured folder entry against folder_base,
// matching the reference implementation's behaviour: entries that are
// already absolute are used as-is.
func joinFolder(base, entry string) string {
	if entry == "" || filepath.IsAbs(entry) {
		return entry
	}
	return filepath.Join(base, entry)
}
