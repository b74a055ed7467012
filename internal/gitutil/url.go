package gitutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	prURLRegex       = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)(?:/[a-z]+)?$`)
	prShorthandRegex = regexp.MustCompile(`^([\w.-]+)/([\w.-]+)#(\d+)$`)
)

// ParsePullRequestURL extracts the owner, repo and number of a pull request.
// Accepted forms are https://github.com/{owner}/{repo}/pull/{number}, optionally
// followed by a tab such as /files, and the shorthand {owner}/{repo}#{number}.
func ParsePullRequestURL(ref string) (owner, repo string, prNumber int, err error) {
	ref = strings.TrimSuffix(strings.TrimSpace(ref), "/")

	matches := prURLRegex.FindStringSubmatch(ref)
	if matches == nil {
		matches = prShorthandRegex.FindStringSubmatch(ref)
	}
	if len(matches) != 4 {
		return "", "", 0, fmt.Errorf("invalid pull request URL format: %s", ref)
	}

	prNumber, err = strconv.Atoi(matches[3])
	if err != nil || prNumber <= 0 {
		return "", "", 0, fmt.Errorf("invalid PR number '%s'", matches[3])
	}
	return matches[1], matches[2], prNumber, nil
}

// CloneURL returns the https clone URL of a GitHub repository.
func CloneURL(owner, repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s.git", owner, repo)
}
