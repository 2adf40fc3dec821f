package command

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parse splits a message into the first of prefixes it starts with, the
// command name immediately following it, and the remaining text.
// ok is false if the text starts with none of the prefixes. The name is empty
// if the prefix is followed by whitespace or nothing.
func Parse(text string, prefixes []string) (prefix, name, rest string, ok bool) {
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if s, found := strings.CutPrefix(text, p); found {
			prefix, text, ok = p, s, true
			break
		}
	}
	if !ok {
		return "", "", "", false
	}
	k := strings.IndexFunc(text, unicode.IsSpace)
	if k < 0 {
		return prefix, text, "", true
	}
	return prefix, text[:k], strings.TrimLeftFunc(text[k:], unicode.IsSpace), true
}

var errUnclosedQuote = errors.New("expected closing quote")

// Split splits command text into arguments. Arguments are separated by
// whitespace, and double quotes group text containing whitespace into a
// single argument. Within quotes, a backslash escapes the next character.
func Split(text string) ([]string, error) {
	var (
		args   []string
		b      strings.Builder
		quoted bool
		inArg  bool
	)
	for len(text) > 0 {
		r, n := utf8.DecodeRuneInString(text)
		text = text[n:]
		switch {
		case quoted && r == '\\' && len(text) > 0:
			r, n = utf8.DecodeRuneInString(text)
			text = text[n:]
			b.WriteRune(r)
		case quoted && r == '"':
			quoted = false
			args = append(args, b.String())
			b.Reset()
			inArg = false
		case quoted:
			b.WriteRune(r)
		case r == '"' && !inArg:
			quoted = true
			inArg = true
		case unicode.IsSpace(r):
			if inArg {
				args = append(args, b.String())
				b.Reset()
				inArg = false
			}
		default:
			b.WriteRune(r)
			inArg = true
		}
	}
	if quoted {
		return args, errUnclosedQuote
	}
	if inArg {
		args = append(args, b.String())
	}
	return args, nil
}
