package discovery

import (
	"strings"
	"unicode"
)

// #region stopwords

// ignored lists words that say what to do rather than what to touch. They
// appear in most coding requests, so they would match every file equally.
var ignored = []string{
	// articles, prepositions, conjunctions
	"the", "an", "and", "or", "but", "if", "so", "as", "at", "by", "for",
	"from", "in", "into", "of", "on", "onto", "to", "with", "without", "when",
	"it", "its", "this", "that", "these", "those", "there", "here",
	// request phrasing
	"please", "can", "could", "would", "should", "must", "will", "let", "lets",
	"me", "my", "we", "our", "you", "your", "want", "need", "like", "some",
	"is", "are", "be", "also", "just", "make", "sure",
	// edit verbs
	"add", "create", "implement", "build", "write", "update", "change",
	"modify", "fix", "refactor", "improve", "rename", "move", "remove",
	"delete", "replace", "support", "allow", "enable", "use", "using",
	// project nouns too generic to point at one file
	"new", "feature", "page", "file", "code", "function", "component",
	"app", "project", "user", "users",
}

var stopwords = func() map[string]struct{} {
	m := make(map[string]struct{}, len(ignored))
	for _, w := range ignored {
		m[w] = struct{}{}
	}
	return m
}()

func isStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// tokenize returns the distinct lowercase keywords of text in first-seen order.
// Single letters and stopwords are dropped.
func tokenize(text string) []string {
	notLetter := func(r rune) bool { return !unicode.IsLetter(r) }
	var tokens []string
	seen := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), notLetter) {
		if _, dup := seen[w]; dup || len(w) < 2 || isStopword(w) {
			continue
		}
		seen[w] = struct{}{}
		tokens = append(tokens, w)
	}
	return tokens
}

// sharedKeywords counts the tokens of candidate that also occur in keywords.
func sharedKeywords(keywords, candidate []string) int {
	want := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		want[k] = struct{}{}
	}
	n := 0
	for _, c := range candidate {
		if _, ok := want[c]; ok {
			n++
		}
	}
	return n
}

// #endregion stopwords
