package theory

import (
	"strings"
	"unicode"
)

const vowels = "aeiouy"

// Syllabify splits a lyric line into singable syllables. Syllable boundaries
// come from vowel-group counting: every word yields at least one syllable, and
// a word with n vowel groups is split into n roughly even chunks.
func Syllabify(line string) []string {
	var syllables []string
	for _, word := range strings.Fields(line) {
		syllables = append(syllables, splitWord(word)...)
	}
	return syllables
}

// CountSyllables returns the syllable count for a lyric line.
func CountSyllables(line string) int {
	return len(Syllabify(line))
}

func splitWord(word string) []string {
	n := countVowelGroups(word)
	if n <= 1 {
		return []string{word}
	}

	// Split the word at vowel-group boundaries: each chunk carries one
	// vowel group plus the consonants that follow it. Lowercasing happens
	// per rune so every index refers to word itself; a lowered copy can be
	// longer in UTF-8 and its indices would overrun word.
	var parts []string
	start := 0
	groups := 0
	inVowel := false
	for i, r := range word {
		isVowel := strings.ContainsRune(vowels, unicode.ToLower(r))
		if isVowel && !inVowel {
			groups++
			if groups > 1 {
				parts = append(parts, word[start:i])
				start = i
			}
		}
		inVowel = isVowel
	}
	parts = append(parts, word[start:])
	return parts
}

func countVowelGroups(word string) int {
	count := 0
	inVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune(vowels, unicode.ToLower(r))
		if isVowel && !inVowel {
			count++
		}
		inVowel = isVowel
	}
	if count == 0 {
		count = 1
	}
	return count
}
