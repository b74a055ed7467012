package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/sevigo/migration-warden/internal/core"
)

const inputSeparator = "\n\n---\n\n"

var runHashPattern = regexp.MustCompile(`<!-- llm-run-hash: ([a-f0-9]+) -->`)

// CanonicalInput serializes migrations into the block sent to the reviewer.
// The same text feeds the run hash.
func CanonicalInput(ms []core.MigrationRecord) string {
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		parts = append(parts, m.Filename+"\n\n"+strings.Join(m.Queries, "\n")+"\n\n"+m.SourceCode)
	}
	return strings.Join(parts, inputSeparator)
}

// ComputeRunHash fingerprints everything that determines a review verdict.
func ComputeRunHash(instructions, projectContext string, ms []core.MigrationRecord) string {
	h := sha256.New()
	h.Write([]byte(instructions))
	h.Write([]byte(projectContext))
	h.Write([]byte(CanonicalInput(ms)))
	return hex.EncodeToString(h.Sum(nil))
}

// ExtractRunHash returns the hash recorded in a previously posted comment.
// If the body carries several markers the last one is used.
func ExtractRunHash(body string) (string, bool) {
	matches := runHashPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return "", false
	}
	return matches[len(matches)-1][1], true
}

// RunHashMarker renders the hidden footer that records hash in a comment.
func RunHashMarker(hash string) string {
	return fmt.Sprintf("<!-- llm-run-hash: %s -->", hash)
}
