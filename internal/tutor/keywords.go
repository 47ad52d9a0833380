package tutor

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// resumeKeywords are the phrases that advance the lecture out of
// waiting_to_resume. Checked only in that state.
var resumeKeywords = []string{"continue", "next", "ok", "resume", "keep going"}

// fuzzyMinLen is the shortest keyword eligible for fuzzy matching. Short
// keywords like "ok" are matched exactly, otherwise half the vocabulary is
// within edit distance one of them.
const fuzzyMinLen = 4

// containsResumeKeyword reports whether transcript text contains a resume
// keyword. Live transcription is noisy ("continu", "nxt"), so keywords of at
// least fuzzyMinLen runes match within Damerau-Levenshtein distance one.
func containsResumeKeyword(text string) bool {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return false
	}

	for _, kw := range resumeKeywords {
		if strings.Contains(kw, " ") {
			// Multi-word keyword: compare against consecutive token pairs.
			for i := 0; i+1 < len(tokens); i++ {
				if keywordMatch(tokens[i]+" "+tokens[i+1], kw) {
					return true
				}
			}
			continue
		}
		for _, tok := range tokens {
			if keywordMatch(tok, kw) {
				return true
			}
		}
	}
	return false
}

func keywordMatch(token, keyword string) bool {
	if token == keyword {
		return true
	}
	if len(keyword) < fuzzyMinLen {
		return false
	}
	return matchr.DamerauLevenshtein(token, keyword) <= 1
}

// tokenize lowercases text and splits it on anything that is not a letter or
// digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
