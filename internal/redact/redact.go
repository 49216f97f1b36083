package redact

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// pemPattern matches PEM key blocks across multiple lines.
var pemPattern = regexp.MustCompile(`(?s)-----BEGIN [A-Z ]+KEY-----.*?-----END [A-Z ]+KEY-----`)

// patterns holds single-line detection regexes in priority order. Product
// documents carry sample policyholder data as well as the occasional
// credential pasted from a filing system.
var patterns = []*regexp.Regexp{
	// Resident ID numbers (18 digits, optional X check digit)
	regexp.MustCompile(`\b\d{17}[\dXx]\b`),
	// Bank card numbers
	regexp.MustCompile(`\b\d{16,19}\b`),
	// Mainland mobile numbers
	regexp.MustCompile(`\b1[3-9]\d{9}\b`),
	// Email addresses
	regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
	// OpenAI / Anthropic secret keys, word-boundary aware
	regexp.MustCompile(`(?:^|\s|["'])sk-[a-zA-Z0-9\-]{20,}`),
	// Bearer tokens, minimum 20 chars to avoid false positives
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]{20,}=*`),
	// Inline password assignments
	regexp.MustCompile(`(?i)(?:password|密码)\s*[:=：]\s*\S+`),
}

// Redact replaces personal data and credentials in input with [REDACTED].
// Line structure is preserved: the number of newlines in the output
// always equals the number of newlines in the input.
func Redact(input string) string {
	input = pemPattern.ReplaceAllStringFunc(input, func(match string) string {
		lines := strings.Split(match, "\n")
		for i := range lines {
			lines[i] = redacted
		}
		return strings.Join(lines, "\n")
	})

	for _, re := range patterns {
		input = re.ReplaceAllString(input, redacted)
	}
	return input
}
