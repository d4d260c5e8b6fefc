// Package moderation censors configured words in message content before it
// is stored or relayed. Matching runs over a normalized view of the text
// (lowercased, leet speak simplified, punctuation and spacing stripped) so
// trivial obfuscation does not defeat the dictionary.
package moderation

import (
	"log/slog"
	"unicode"

	"parley/errors"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// textMapping links the normalized runes back to their original positions so
// a match found in normalized space can be starred out in the original.
type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton from the dictionary.
// An empty dictionary is an error; callers that want moderation disabled
// should not construct a Moderator at all.
func NewModerator(dictionary []string, replacement rune, log *slog.Logger) (*Moderator, error) {
	if len(dictionary) == 0 {
		return nil, errors.ErrEmptyWords
	}

	patterns := make([][]rune, len(dictionary))
	for i, word := range dictionary {
		patterns[i] = normalizeRunes([]rune(word))
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: machine, replacement: replacement, log: log}, nil
}

// Censor replaces every dictionary match in the original text with the
// replacement rune, preserving length and spacing, and returns the matched
// dictionary words (normalized form).
func (m *Moderator) Censor(original string) (string, []string) {
	mapping := m.normalize(original)
	if len(mapping.normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	var matched []string
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}
		matched = append(matched, string(span.Word))

		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.replacement
		}
	}

	if len(matched) > 0 {
		m.log.Debug("Censored message content", "matches", len(matched))
	}
	return string(origRunes), matched
}

func (m *Moderator) normalize(input string) textMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return textMapping{normalized: norm, origIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak characters back to their plain
// alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
