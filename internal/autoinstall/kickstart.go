package autoinstall

import "regexp"

// installSourceRe matches a kickstart url installer-source line. Only
// the first occurrence is rewritten.
var installSourceRe = regexp.MustCompile(`(?im)^\s*url .*$`)

// ReplaceInstallSourceWithCDROM points a kickstart document at the
// boot medium instead of a network install tree. Used for standalone
// media where the source lives on the disc.
func ReplaceInstallSourceWithCDROM(document string) string {
	replaced := false
	return installSourceRe.ReplaceAllStringFunc(document, func(line string) string {
		if replaced {
			return line
		}
		replaced = true
		return "cdrom"
	})
}
