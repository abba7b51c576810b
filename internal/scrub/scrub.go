// Package scrub redacts secrets from text before it leaves the process.
package scrub

import "regexp"

var (
	// KEY=value lines; the key is kept
	envRegex = regexp.MustCompile(`(?m)^([A-Z_]+)=\S+$`)
	jwtRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)
	// OpenAI style sk- keys
	skRegex = regexp.MustCompile(`sk-[a-zA-Z0-9\-]{20,}`)
	// Groq keys
	gskRegex    = regexp.MustCompile(`gsk_[a-zA-Z0-9]{20,}`)
	aizaRegex   = regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)
	ghpRegex    = regexp.MustCompile(`ghp_[a-zA-Z0-9]{36}`)
	bearerRegex = regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9._\-]{16,}`)
)

// Clean scrubs secrets from outbound text.
func Clean(input string) string {
	input = envRegex.ReplaceAllString(input, "${1}=[REDACTED]")
	input = skRegex.ReplaceAllString(input, "[REDACTED_KEY]")
	input = gskRegex.ReplaceAllString(input, "[REDACTED_KEY]")
	input = jwtRegex.ReplaceAllString(input, "[REDACTED_JWT]")
	input = aizaRegex.ReplaceAllString(input, "[REDACTED_KEY]")
	input = ghpRegex.ReplaceAllString(input, "[REDACTED_KEY]")
	input = bearerRegex.ReplaceAllString(input, "${1}[REDACTED]")
	return input
}
