package pshellline

import "strings"

// Policy selects between the two TAB-completion behaviors (spec §4.B).
type Policy int

const (
	// PolicyFast (the default) completes on a single TAB.
	PolicyFast Policy = iota
	// PolicyBash requires a double TAB to list candidates; a single TAB
	// only fills the longest common prefix.
	PolicyBash
)

// longestCommonPrefix returns the longest string that is a prefix of every
// element of words. Empty if words is empty.
func longestCommonPrefix(words []string) string {
	if len(words) == 0 {
		return ""
	}
	prefix := words[0]
	for _, w := range words[1:] {
		i := 0
		for i < len(prefix) && i < len(w) && prefix[i] == w[i] {
			i++
		}
		prefix = prefix[:i]
		if prefix == "" {
			break
		}
	}
	return prefix
}

// matches returns the keywords that have partial as a prefix, preserving
// the order of keywords.
func matches(keywords []string, partial string) []string {
	var res []string
	for _, k := range keywords {
		if strings.HasPrefix(k, partial) {
			res = append(res, k)
		}
	}
	return res
}

// completionResult is what a TAB (or double TAB) press produces.
type completionResult struct {
	// insert is the text to insert at the cursor, if any.
	insert string
	// trailingSpace indicates insert should be followed by a space (used
	// when a single match is found).
	trailingSpace bool
	// list is the set of candidates to print beneath the prompt, if the
	// policy calls for listing them now.
	list []string
}

// complete applies policy to partial against keywords. pressCount is how
// many consecutive TABs have been pressed for this token so far (1 for the
// first press, 2 for the second, ...).
func complete(policy Policy, keywords []string, partial string, pressCount int) completionResult {
	cands := matches(keywords, partial)

	if len(cands) == 0 {
		if partial == "" {
			return completionResult{list: keywords}
		}
		return completionResult{}
	}

	if len(cands) == 1 {
		rest := cands[0][len(partial):]
		return completionResult{insert: rest, trailingSpace: true}
	}

	lcp := longestCommonPrefix(cands)
	rest := lcp[len(partial):]

	switch policy {
	case PolicyBash:
		if pressCount < 2 {
			return completionResult{insert: rest}
		}
		return completionResult{insert: rest, list: cands}
	default: // PolicyFast
		return completionResult{insert: rest, list: cands}
	}
}
