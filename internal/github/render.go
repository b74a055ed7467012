package github

import (
	"fmt"
	"strings"

	"github.com/sevigo/migration-warden/internal/core"
)

const (
	commentTitle  = "### This pull request includes the following database migrations:"
	commentFooter = "*via [laravel-migrations-check](https://github.com/mtwteam/laravel-migrations-check)*"
)

// RenderComment builds the markdown summary for the given migrations.
// It never emits the tracking header or the run hash marker.
func RenderComment(ms []core.MigrationRecord) string {
	var sb strings.Builder

	sb.WriteString(commentTitle + "\n\n")
	for _, m := range ms {
		fmt.Fprintf(&sb, "#### (%s) %s\n", escapeHTMLComment(string(m.Status)), escapeHTMLComment(m.Filename))
		sql := strings.Join(m.Queries, "\n")
		fence := codeFence(sql)
		sb.WriteString(fence + "sql\n")
		sb.WriteString(sql)
		sb.WriteString("\n" + fence + "\n\n")

		if m.Review != nil {
			writeReview(&sb, m.Review)
		}
	}
	sb.WriteString(commentFooter)

	return sb.String()
}

func writeReview(sb *strings.Builder, r *core.ReviewResult) {
	verdict := "❌ Unsafe"
	if r.Safe {
		verdict = "✅ Safe"
	}
	fmt.Fprintf(sb, "<details><summary><strong>LLM Review:</strong> %s</summary>\n\n", verdict)
	fmt.Fprintf(sb, "- **Comment:** %s\n", escapeHTMLComment(r.Comment))
	if r.SuggestedChanges != "" {
		fmt.Fprintf(sb, "- **Recommended Changes:** %s\n", escapeHTMLComment(r.SuggestedChanges))
	}
	sb.WriteString("</details>\n\n")
}

// codeFence returns a backtick fence longer than any backtick run in s, so
// the content cannot close the block early.
func codeFence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

// escapeHTMLComment neutralizes comment delimiters so untrusted text cannot
// open or close a hidden marker. Every pass removes a '<' or '>' so the loop ends.
func escapeHTMLComment(s string) string {
	for {
		next := strings.ReplaceAll(s, "<!--", "&lt;!--")
		next = strings.ReplaceAll(next, "-->", "--&gt;")
		if next == s {
			return s
		}
		s = next
	}
}
