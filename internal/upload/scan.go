package upload

import "strings"

// scanWindow is how many leading bytes the content scanner inspects
const scanWindow = 1024

// maliciousPatterns are markers of injectable script content. The scan is a
// best-effort heuristic, not a security boundary: it catches files that are
// plainly HTML or script dressed up with a media extension, and it will miss
// payloads obfuscated beyond simple case changes (patterns split across the
// 1 KiB window, encoded entities, and so on).
var maliciousPatterns = []string{
	"<script",
	"</script>",
	"javascript:",
	"vbscript:",
	"onload=",
	"onerror=",
}

// LooksMalicious scans the first kilobyte of a file for embedded script or
// markup patterns. The window is lower-cased before matching so trivial
// case obfuscation does not slip through.
func LooksMalicious(leading []byte) bool {
	if len(leading) > scanWindow {
		leading = leading[:scanWindow]
	}

	text := strings.ToLower(string(leading))
	for _, pattern := range maliciousPatterns {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}
