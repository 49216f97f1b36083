package patch

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"github.com/dshills/clauseaudit/internal/schema"
)

// Rewrite is a proposed replacement for one clause.
type Rewrite struct {
	RuleNumber string
	Reference  string
	Before     string // text to use as diff source
	After      string // text to use as diff target
}

// FromViolations collects the rewrites proposed by confirmed
// disambiguations. Before is the full clause text addressed by
// ClauseIndex, not the preview. One rewrite is kept per clause, from the
// first violation that proposed it.
func FromViolations(violations []schema.Violation, clauses []schema.Clause) []Rewrite {
	byIndex := make(map[int]schema.Clause, len(clauses))
	for _, c := range clauses {
		byIndex[c.Index] = c
	}
	seen := make(map[int]bool)
	var out []Rewrite
	for _, v := range violations {
		d := v.Disambiguation
		if d == nil || !d.Confirmed || strings.TrimSpace(d.Rewrite) == "" || seen[v.ClauseIndex] {
			continue
		}
		c, ok := byIndex[v.ClauseIndex]
		if !ok {
			continue
		}
		seen[v.ClauseIndex] = true
		out = append(out, Rewrite{RuleNumber: v.RuleNumber, Reference: c.Reference, Before: c.Text, After: d.Rewrite})
	}
	return out
}

// GenerateDiff converts rewrites into diff-match-patch text. Rewrites that
// cannot be located in the document are skipped with a warning on log
// (may be nil). Both before and after are normalized before diffing to
// avoid spurious whitespace diffs.
func GenerateDiff(docRaw string, rewrites []Rewrite, log *zap.SugaredLogger) string {
	if len(rewrites) == 0 {
		return ""
	}

	normDoc := normalize(docRaw)

	dmp := diffmatchpatch.New()
	var out strings.Builder

	for _, rw := range rewrites {
		before, after, ok := resolve(rw, docRaw, normDoc)
		if !ok {
			if log != nil {
				log.Warnw("rewrite could not be located in document", "rule_number", rw.RuleNumber, "reference", rw.Reference)
			}
			continue
		}

		diffs := dmp.DiffMain(before, after, false)
		patchText := dmp.PatchToText(dmp.PatchMake(before, diffs))
		if patchText == "" {
			continue
		}

		out.WriteString(fmt.Sprintf("# patch for %s %s\n", rw.RuleNumber, rw.Reference))
		out.WriteString(patchText)
		out.WriteString("\n")
	}

	return out.String()
}

// resolve locates rw.Before in docRaw by exact or normalized matching.
func resolve(rw Rewrite, docRaw, normDoc string) (string, string, bool) {
	if strings.Contains(docRaw, rw.Before) {
		return rw.Before, rw.After, true
	}
	normBefore := normalize(rw.Before)
	if strings.Contains(normDoc, normBefore) {
		return normBefore, normalize(rw.After), true
	}
	return "", "", false
}

// normalize trims trailing whitespace from each line and converts CRLF to LF.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// TextDiff returns a line diff of two texts: unchanged lines are prefixed
// with two spaces, removed lines with "- " and added lines with "+ ".
// Identical inputs give "".
func TextDiff(a, b string) string {
	a, b = normalize(a), normalize(b)
	if a == b {
		return ""
	}
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteString("\n")
			}
		}
	}
	return out.String()
}
