// Package tsid handles the backend's large integer identifiers, which must travel as strings
// because they do not fit in an IEEE 754 double.
package tsid

// MinQuotedDigits is the number of digits from which a bare integer is treated as an identifier.
const MinQuotedDigits = 15

// QuoteLargeInts rewrites every bare integer literal with MinQuotedDigits or more digits into a
// JSON string holding the same digits. String contents, fractional or exponent numbers and
// shorter integers are left untouched. The input slice is returned as is when nothing changes.
//
// The scan tracks string and escape state, so digit runs inside string values are never touched.
// It does not validate the document; malformed input is passed through for the decoder to reject.
func QuoteLargeInts(body []byte) []byte {
	var out []byte
	last := 0
	inString, escaped := false, false

	for i := 0; i < len(body); {
		c := body[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			i++
			continue
		}

		switch {
		case c == '"':
			inString = true
			i++
		case c == '-' || isDigit(c):
			start := i
			j := i
			if body[j] == '-' {
				j++
			}
			digitsStart := j
			for j < len(body) && isDigit(body[j]) {
				j++
			}
			end := j
			for end < len(body) && isNumberByte(body[end]) {
				end++
			}
			if end == j && j-digitsStart >= MinQuotedDigits {
				if out == nil {
					out = make([]byte, 0, len(body)+16)
				}
				out = append(out, body[last:start]...)
				out = append(out, '"')
				out = append(out, body[start:j]...)
				out = append(out, '"')
				last = j
			}
			i = end
		default:
			i++
		}
	}

	if out == nil {
		return body
	}
	return append(out, body[last:]...)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNumberByte(c byte) bool {
	return isDigit(c) || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-'
}
