package sanitizer

import (
	"errors"
	"path"
	"regexp"
	"strings"
)

var (
	ErrEmptyPath    = errors.New("path is empty")
	ErrAbsolutePath = errors.New("path must be relative")
	ErrEscapesRoot  = errors.New("path escapes the mirror root")
)

// characters lftp's command parser treats specially
var needsQuoteRegex = regexp.MustCompile(`[\s"'\\;&|<>()$` + "`" + `#*?\[\]{}]`)

// CleanRelativePath normalises a path that will be joined under the mirror
// root. Leading/trailing whitespace is trimmed, "." segments are removed and
// anything that would climb out of the root is rejected.
func CleanRelativePath(p string) (string, error) {
	cleaned := strings.TrimSpace(p)
	if cleaned == "" {
		return "", ErrEmptyPath
	}
	if strings.HasPrefix(cleaned, "/") {
		return "", ErrAbsolutePath
	}

	for _, segment := range strings.Split(cleaned, "/") {
		if segment == ".." {
			return "", ErrEscapesRoot
		}
	}

	cleaned = path.Clean(cleaned)
	if cleaned == "." {
		return "", ErrEmptyPath
	}
	return cleaned, nil
}

// NeedsQuoting reports whether an argument must be quoted for lftp
func NeedsQuoting(arg string) bool {
	return arg == "" || needsQuoteRegex.MatchString(arg)
}

// QuoteArg returns arg in a form lftp reads back as a single word
func QuoteArg(arg string) string {
	if !NeedsQuoting(arg) {
		return arg
	}
	escaped := strings.ReplaceAll(arg, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
