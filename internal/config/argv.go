package config

import (
	"fmt"
	"strings"
	"unicode"
)

// splitCommand turns a camera.command or speech.command string into argv
// without invoking a shell. Quotes group words and a backslash escapes the
// next rune. A value starting with '#' is treated as unset.
func splitCommand(key, raw string) ([]string, error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	var (
		argv      []string
		word      strings.Builder
		inWord    bool
		quote     rune
		quoteCol  int
		escapeCol int
	)

	for i, r := range []rune(line) {
		col := i + 1
		switch {
		case escapeCol > 0:
			word.WriteRune(r)
			escapeCol = 0
		case r == '\\':
			escapeCol = col
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			word.WriteRune(r)
		case r == '\'' || r == '"':
			quote, quoteCol = r, col
			inWord = true
		case unicode.IsSpace(r):
			if inWord {
				argv = append(argv, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	switch {
	case escapeCol > 0:
		return nil, fmt.Errorf("%s: trailing backslash at column %d in %q", key, escapeCol, line)
	case quote != 0:
		return nil, fmt.Errorf("%s: unclosed %c quote opened at column %d in %q", key, quote, quoteCol, line)
	}
	if inWord {
		argv = append(argv, word.String())
	}
	return argv, nil
}

// mustSplitCommand is for built-in defaults only.
func mustSplitCommand(key, raw string) []string {
	argv, err := splitCommand(key, raw)
	if err != nil {
		panic(err)
	}
	return argv
}
