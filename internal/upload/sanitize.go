package upload

import (
	"path/filepath"
	"strings"
)

// dangerousChars are rejected anywhere in a filename: path separators,
// shell/OS metacharacters and the NUL byte. Control characters are checked
// separately since they span a range.
const dangerousChars = "/\\:\"*?|<>\x00"

// reservedNames are Windows device names that must never be used as a
// filename, with or without an extension.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsSafeFilename reports whether the client-supplied filename is safe to
// process. It rejects empty names, names containing control or dangerous
// characters (which covers every path-traversal form), and OS-reserved
// device names. This runs before any disk I/O, so a failure is a hard
// rejection with no partial write.
func IsSafeFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	if strings.ContainsAny(name, dangerousChars) {
		return false
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	if reservedNames[strings.ToUpper(base)] {
		return false
	}

	return true
}
