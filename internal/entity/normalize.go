package entity

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LegalSuffixes lists the legal-entity suffix tokens stripped during
// normalization. Matching is case-sensitive and whole-word, so only the
// listed spellings are removed. A trailing "." matches any single
// character other than a newline.
var LegalSuffixes = []string{
	"Inc", "INC", "Corporation", "corp", "CORPORATION", "Corp",
	"Ltd", "ltd.", "plc", "ag", "sa", "group", "Group",
}

var (
	punctuationRe = regexp.MustCompile(`[.,"]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes an organization name by:
//  1. Removing periods, commas and double quotes
//  2. Removing every whole-word occurrence of each legal suffix
//  3. Collapsing whitespace runs into a single space and trimming
//
// Punctuation is removed first, so "ltd." only matches "ltd" plus one
// following character, as in "ltd Holdings" or "ltda".
func Normalize(name string) string {
	name = punctuationRe.ReplaceAllString(name, "")
	for _, s := range LegalSuffixes {
		if w, ok := strings.CutSuffix(s, "."); ok {
			name = removeWordAnyTail(name, w)
			continue
		}
		name = removeWord(name, s)
	}
	name = whitespaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// removeWord deletes every occurrence of word in s that is delimited by
// word boundaries. Letters, digits and underscore of any script count as
// word characters.
func removeWord(s, word string) string {
	if word == "" || !strings.Contains(s, word) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for {
		j := strings.Index(s[i:], word)
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		start := i + j
		end := start + len(word)
		if atBoundary(s, start, word, true) && atBoundary(s, end, word, false) {
			b.WriteString(s[i:start])
		} else {
			// Keep the first rune and resume the scan after it.
			_, size := utf8.DecodeRuneInString(s[start:])
			b.WriteString(s[i : start+size])
			end = start + size
		}
		i = end
	}
	return b.String()
}

// removeWordAnyTail deletes every occurrence of word followed by one more
// rune (not a newline), where the word starts on a word boundary and the
// extra rune ends on one.
func removeWordAnyTail(s, word string) string {
	if word == "" || !strings.Contains(s, word) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for {
		j := strings.Index(s[i:], word)
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		start := i + j
		end := start + len(word)
		matched := false
		if atBoundary(s, start, word, true) && end < len(s) {
			tail, size := utf8.DecodeRuneInString(s[end:])
			if tail != '\n' {
				after := false
				if end+size < len(s) {
					r, _ := utf8.DecodeRuneInString(s[end+size:])
					after = isWordRune(r)
				}
				if isWordRune(tail) != after {
					matched = true
					end += size
				}
			}
		}
		if matched {
			b.WriteString(s[i:start])
		} else {
			_, size := utf8.DecodeRuneInString(s[start:])
			b.WriteString(s[i : start+size])
			end = start + size
		}
		i = end
	}
	return b.String()
}

// atBoundary reports whether position pos in s is a word boundary relative
// to the edge of word. leading selects the left edge of the match.
func atBoundary(s string, pos int, word string, leading bool) bool {
	var inner rune
	if leading {
		inner, _ = utf8.DecodeRuneInString(word)
	} else {
		inner, _ = utf8.DecodeLastRuneInString(word)
	}

	outerIsWord := false
	if leading && pos > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:pos])
		outerIsWord = isWordRune(r)
	}
	if !leading && pos < len(s) {
		r, _ := utf8.DecodeRuneInString(s[pos:])
		outerIsWord = isWordRune(r)
	}
	return isWordRune(inner) != outerIsWord
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
