package session

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"seedpull/internal/models"
	"seedpull/internal/sanitizer"
)

type commandKind string

const (
	kindVerify  commandKind = "verify"
	kindEnqueue commandKind = "enqueue"
	kindStatus  commandKind = "status"
)

const (
	listCommand   = "ls"
	statusCommand = "jobs -v"
)

// QueueCommand builds the lftp command that queues a download of remotePath
// into localDir. Partial transfers are always resumed.
func QueueCommand(kind models.JobType, localDir, remotePath string) string {
	return strings.Join([]string{
		"queue",
		kind.String(),
		"-c",
		"-O", sanitizer.QuoteArg(localDir),
		sanitizer.QuoteArg(remotePath),
	}, " ")
}

// RemotePath joins the remote home, the watched subdirectory and a relative path
func RemotePath(remoteHome, remoteSubdir, relativePath string) string {
	return path.Join(remoteHome, remoteSubdir, relativePath)
}

// drwxr-xr-x   3 user  group      4096 Jan 01 12:00 name
var longListingRe = regexp.MustCompile(`^\S+\s+\d+\s+\S+\s+\S+\s+\d+\s+\S+\s+\S+\s+\S+\s+(.+)$`)

var totalLineRe = regexp.MustCompile(`^total\s+\d+$`)

// listingName extracts the entry name from one line of `ls` output. Lines
// that are not in long format are taken as the name itself.
func listingName(line string) (string, bool) {
	line = strings.TrimRight(line, " \t")
	if strings.TrimSpace(line) == "" || totalLineRe.MatchString(line) {
		return "", false
	}

	name := line
	if m := longListingRe.FindStringSubmatch(line); m != nil {
		name = m[1]
		if i := strings.Index(name, " -> "); i >= 0 {
			name = name[:i]
		}
	}
	if name == "." || name == ".." {
		return "", false
	}
	return name, true
}

func listingNames(lines []string) []string {
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		if name, ok := listingName(line); ok {
			names = append(names, name)
		}
	}
	return names
}

// compareListings treats both listings as sets and reports the names only
// present on one side.
func compareListings(remote, local []string) (missingLocally, missingRemotely []string) {
	remoteSet := toSet(remote)
	localSet := toSet(local)

	for name := range remoteSet {
		if _, ok := localSet[name]; !ok {
			missingLocally = append(missingLocally, name)
		}
	}
	for name := range localSet {
		if _, ok := remoteSet[name]; !ok {
			missingRemotely = append(missingRemotely, name)
		}
	}
	sort.Strings(missingLocally)
	sort.Strings(missingRemotely)
	return missingLocally, missingRemotely
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "." || name == ".." {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}
