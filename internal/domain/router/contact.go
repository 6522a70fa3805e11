package router

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// Common obfuscations relay operators use in contact lines.
	atRe  = regexp.MustCompile(`(?i)\s(?:at|\(at\)|\[at\])\s`)
	dotRe = regexp.MustCompile(`(?i)\s(?:dot|\(dot\)|\[dot\])\s`)
)

// ParseContactEmail extracts an email address from a relay's free-form
// contact line, undoing the usual "name at host dot tld" obfuscations.
// Returns "" when no address can be recovered.
func ParseContactEmail(contact string) string {
	if contact == "" {
		return ""
	}

	if addr := emailRe.FindString(contact); addr != "" {
		return addr
	}

	deobfuscated := atRe.ReplaceAllString(contact, "@")
	deobfuscated = dotRe.ReplaceAllString(deobfuscated, ".")
	deobfuscated = strings.ReplaceAll(deobfuscated, " ", "")

	return emailRe.FindString(deobfuscated)
}
