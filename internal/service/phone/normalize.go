// Package phone turns free-form user input into the digits-only identifier
// that keys a helpdesk conversation.
package phone

// MaxDigits is the longest identifier kept (E.164 upper bound).
const MaxDigits = 15

// Normalize strips every character that is not an ASCII digit and truncates
// the result to MaxDigits. It never fails and is idempotent.
func Normalize(raw string) string {
	buf := make([]byte, 0, MaxDigits)
	for i := 0; i < len(raw) && len(buf) < MaxDigits; i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			buf = append(buf, c)
		}
	}
	return string(buf)
}
