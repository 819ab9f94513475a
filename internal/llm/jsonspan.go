package llm

// ExtractJSONObject locates the largest balanced top-level JSON object embedded
// anywhere in s. Models tend to wrap their JSON in commentary, so the span is
// matched greedily: from the first '{' to the last brace that balances it,
// ignoring braces inside string literals.
func ExtractJSONObject(s string) (string, bool) {
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	end := -1
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
			}
		}
	}

	if end < 0 {
		return "", false
	}
	return s[start : end+1], true
}
