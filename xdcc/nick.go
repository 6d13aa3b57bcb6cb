package xdcc

// EqualNick compares two nicknames using rfc1459 casemapping, where
// {}| are the lower case forms of []\.
func EqualNick(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if foldNick(a[i]) != foldNick(b[i]) {
			return false
		}
	}
	return true
}

func foldNick(c byte) byte {
	switch {
	case c >= 'A' && c <= 'Z':
		return c + 'a' - 'A'
	case c == '[':
		return '{'
	case c == ']':
		return '}'
	case c == '\\':
		return '|'
	}
	return c
}
