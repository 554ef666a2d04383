// Package redact masks sensitive values before they are written to logs.
package redact

// Phone keeps the last three digits of a phone number: "03001234567" -> "********567".
// Inputs of three characters or fewer are fully masked.
func Phone(s string) string {
	r := []rune(s)
	if len(r) <= 3 {
		return "***"
	}
	masked := make([]rune, len(r))
	for i := range r[:len(r)-3] {
		masked[i] = '*'
	}
	copy(masked[len(r)-3:], r[len(r)-3:])
	return string(masked)
}

// Token is the placeholder written instead of any bearer token.
func Token() string { return "[REDACTED_TOKEN]" }

// PIN is the placeholder written instead of a PIN.
func PIN() string { return "[REDACTED_PIN]" }
