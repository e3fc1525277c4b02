package quality

import (
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// minDuplicateLen skips short lines such as closing braces and bare returns.
const minDuplicateLen = 12

var eslintErrorLine = regexp.MustCompile(`^\s*\d+:\d+\s+error\s+`)

// #region duplication
// Duplication counts repeated occurrences of non-trivial lines. Each copy after
// the first counts once.
func Duplication(code string) int {
	seen := make(map[string]int)
	dup := 0
	for _, line := range strings.Split(code, "\n") {
		norm := strings.Join(strings.Fields(line), " ")
		if len(norm) < minDuplicateLen || strings.HasPrefix(norm, "//") || strings.HasPrefix(norm, "import ") {
			continue
		}
		if seen[norm] > 0 {
			dup++
		}
		seen[norm]++
	}
	return dup
}
// #endregion duplication

// #region lint
// ParseLintErrors counts ESLint stylish-format error lines ("  3:7  error  ...").
// Warnings are not counted.
func ParseLintErrors(output string) int {
	n := 0
	for _, line := range strings.Split(output, "\n") {
		if eslintErrorLine.MatchString(line) {
			n++
		}
	}
	return n
}
// #endregion lint

// #region compare
// Compare diffs original and generated line by line.
func Compare(original, generated string) Comparison {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(original, generated)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var c Comparison
	for _, d := range diffs {
		n := lineCount(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			c.Insertions += n
		case diffmatchpatch.DiffDelete:
			c.Deletions += n
		}
	}
	c.Changed = c.Insertions > 0 || c.Deletions > 0
	return c
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
// #endregion compare
