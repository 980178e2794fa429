package jobstatus

import (
	"path"
	"regexp"
	"strings"
)

type blockKind int

const (
	blockNone blockKind = iota
	blockPointTransfer
	blockMirror
	blockMirrorInitial
	blockQueue
	blockDone
	blockSkipped
)

func (k blockKind) String() string {
	switch k {
	case blockPointTransfer:
		return "pget"
	case blockMirror:
		return "mirror"
	case blockMirrorInitial:
		return "mirror-initial"
	case blockQueue:
		return "queue"
	case blockDone:
		return "done"
	case blockSkipped:
		return "skipped"
	default:
		return "none"
	}
}

const (
	sizeUnitsPattern = `(?i:b|k|kb|kib|m|mb|mib|g|gb|gib)`
	sizePattern      = `\d+(?:\.\d+)?\s?` + sizeUnitsPattern + `?`
	etaPattern       = `eta:(?P<eta_d>\d+d)?(?P<eta_h>\d+h)?(?P<eta_m>\d+m)?(?P<eta_s>\d+s)?`
)

var (
	// [1] pget -c -O /dst file.mkv -- 3.52M/s
	pgetHeaderRe = regexp.MustCompile(`^\[(?P<id>\d+)\]\s+pget\s+(?P<args>.+?)(?:\s+--(?:\s+(?P<speed>.*))?)?$`)

	// [1] mirror -c remote /local -- 183500800/9663676416 (1%) 4.08 MiB/s
	mirrorHeaderRe = regexp.MustCompile(`^\[(?P<id>\d+)\]\s+mirror\s+(?P<args>.+?)\s+--\s+` +
		`(?P<szlocal>` + sizePattern + `)/(?P<szremote>` + sizePattern + `)\s+\((?P<pct>\d+)%\)` +
		`(?:\s+(?P<speed>` + sizePattern + `)/s)?$`)

	// [1] mirror -c remote /local
	// [1] mirror -c remote /local  --
	mirrorInitialHeaderRe = regexp.MustCompile(`^\[(?P<id>\d+)\]\s+mirror\s+(?P<args>.+?)(?:\s+--\s*)?$`)

	// a non-empty status after "--" means sizes are expected
	mirrorStatusRe = regexp.MustCompile(`\s--\s+\S`)

	// [0] queue (sftp://user@host)  -- 3.2 MiB/s
	// [0] Done (queue (sftp://user@host))
	queueHeaderRe = regexp.MustCompile(`^\[(?P<id>\d+)\]\s+(?:queue\s+\(|Done\s+\(queue\s+\()`)

	// [2] Done (pget -c -O /dst file.mkv)
	doneHeaderRe = regexp.MustCompile(`^\[(?P<id>\d+)\]\s+Done\s+\((?P<kind>pget|mirror)\s+(?P<args>.+)\)$`)

	// Any other "[n] word" line starts a block we do not understand.
	anyHeaderRe = regexp.MustCompile(`^\[(?P<id>\d+)\]\s+(?P<word>\S+)`)

	endpointRe = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)

	// `file.mkv', got 9681635592 of 12053998409 (80%) 3.52M/s eta:19m
	gotLineRe = regexp.MustCompile("^`(?P<name>.*)',\\s+got\\s+(?P<local>\\d+)\\s+of\\s+(?P<remote>\\d+)\\s+\\((?P<pct>\\d+)%\\)" +
		`(?:\s+(?P<speed>` + sizePattern + `/s))?(?:\s+` + etaPattern + `)?`)

	// `file.mkv' at 9655224584 (0%) 816.2K/s eta:9m [Receiving data]
	atLineRe = regexp.MustCompile("^`(?P<name>.*)'\\s+at\\s+(?P<offset>\\d+)(?:\\s+\\((?P<pct>\\d+)%\\))?" +
		`(?:\s+(?P<speed>` + sizePattern + `/s))?(?:\s+` + etaPattern + `)?(?:\s+\[(?P<desc>.*)\])?\s*$`)

	// 1. pget -c -O /dst other.mkv
	queueEntryRe = regexp.MustCompile(`^(?P<pos>\d+)\.\s+(?P<cmd>.+)$`)
)

// classify reports which header, if any, the line is. Order matters: the pget
// grammar is tried first, then the two mirror forms, then the queue section.
func classify(line string) blockKind {
	switch {
	case pgetHeaderRe.MatchString(line):
		return blockPointTransfer
	case mirrorHeaderRe.MatchString(line):
		return blockMirror
	case mirrorInitialHeaderRe.MatchString(line) && !mirrorStatusRe.MatchString(line):
		return blockMirrorInitial
	case queueHeaderRe.MatchString(line):
		return blockQueue
	case doneHeaderRe.MatchString(line):
		return blockDone
	case anyHeaderRe.MatchString(line):
		return blockSkipped
	default:
		return blockNone
	}
}

func namedGroups(re *regexp.Regexp, s string) map[string]string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	groups := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" {
			groups[name] = m[i]
		}
	}
	return groups
}

// commandArgs is the decoded argument list of a pget or mirror header
type commandArgs struct {
	flags  []string
	remote string
	local  string
	outDir string
}

func (a commandArgs) flagString() string {
	return strings.Join(a.flags, " ")
}

// parsePgetArgs splits "<flags> <remote> [-o <local>]". -O, -o and -n take a value.
func parsePgetArgs(args string) commandArgs {
	var out commandArgs
	rest := parseOptions(args, &out)

	if i := strings.LastIndex(rest, " -o "); i >= 0 {
		out.remote = unquote(strings.TrimSpace(rest[:i]))
		out.local = unquote(strings.TrimSpace(rest[i+len(" -o "):]))
	} else {
		out.remote = unquote(strings.TrimSpace(rest))
	}

	if out.local == "" && out.outDir != "" && out.remote != "" {
		out.local = path.Join(out.outDir, path.Base(out.remote))
	}
	return out
}

// parseMirrorArgs splits "<flags> <remote> [<local>]"
func parseMirrorArgs(args string) commandArgs {
	var out commandArgs
	rest := parseOptions(args, &out)

	tokens := splitTokens(rest)
	switch len(tokens) {
	case 0:
	case 1:
		out.remote = tokens[0]
		if out.outDir != "" {
			out.local = path.Join(out.outDir, path.Base(out.remote))
		}
	default:
		out.remote = strings.Join(tokens[:len(tokens)-1], " ")
		out.local = tokens[len(tokens)-1]
	}
	return out
}

// parseOptions consumes leading option tokens and returns what follows them
func parseOptions(args string, out *commandArgs) string {
	rest := strings.TrimSpace(args)
	for strings.HasPrefix(rest, "-") {
		tok, after := cutToken(rest)
		switch tok {
		case "-o", "-O":
			val, after2 := cutToken(after)
			if tok == "-o" {
				out.local = val
			} else {
				out.outDir = val
			}
			rest = after2
		case "-n":
			// segment count
			val, after2 := cutToken(after)
			out.flags = append(out.flags, tok+" "+val)
			rest = after2
		default:
			out.flags = append(out.flags, tok)
			rest = after
		}
	}
	return rest
}

// cutToken returns the first whitespace-delimited token, honouring quotes
func cutToken(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return "", ""
	}
	if q := s[0]; q == '"' || q == '\'' {
		if end := strings.IndexByte(s[1:], q); end >= 0 {
			return s[1 : end+1], strings.TrimLeft(s[end+2:], " \t")
		}
	}
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimLeft(s[i:], " \t")
	}
	return s, ""
}

func splitTokens(s string) []string {
	var tokens []string
	for {
		tok, rest := cutToken(s)
		if tok == "" && rest == "" {
			return tokens
		}
		tokens = append(tokens, tok)
		s = rest
	}
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
