package moderation

import (
	"log/slog"
	"unicode"
	"unicode/utf8"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Moderator censors forbidden words in inbound lines before they are framed.
// A Moderator built without any usable word is a no-op.
type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
	log          *slog.Logger
}

// TextMapping links each normalized rune to the byte offset of its source rune.
type TextMapping struct {
	Normalized []rune
	OrigIdx    []int
}

// NewModerator initializes the Aho-Corasick automaton with a normalized version of the provided censored words list.
// Words made only of noise (punctuation, spaces, symbols) are ignored.
func NewModerator(censoredWords []string, censoredChar rune, log *slog.Logger) (*Moderator, error) {
	var patterns [][]rune
	for _, word := range lo.Uniq(censoredWords) {
		normalized := normalizeRunes([]rune(word))
		if len(normalized) == 0 {
			continue
		}
		patterns = append(patterns, normalized)
	}

	moderator := &Moderator{censoredChar: censoredChar, log: log}
	if len(patterns) == 0 {
		log.Debug("No censored word to load, moderation disabled")
		return moderator, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	moderator.matcher = m
	log.Info("Moderation enabled", "censored_words", len(patterns))
	return moderator, nil
}

// Enabled reports whether at least one word will be censored.
func (m *Moderator) Enabled() bool {
	return m != nil && m.matcher != nil
}

// Censor identifies forbidden patterns and replaces the original characters while preserving spacing.
// It returns the censored text and the normalized words found, in order of appearance.
// Bytes outside a match are kept as is, invalid UTF-8 included.
func (m *Moderator) Censor(original string) (string, []string) {
	if !m.Enabled() {
		return original, nil
	}
	mapping := m.normalize(original)
	if len(mapping.Normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(mapping.Normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	censored := make([]bool, len(original))
	var found []string
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)

		if normStart < 0 || normEnd > len(mapping.OrigIdx) {
			continue
		}

		// Byte range from the first matched rune to the start of the last one.
		for i := mapping.OrigIdx[normStart]; i <= mapping.OrigIdx[normEnd-1]; i++ {
			censored[i] = true
		}
		found = append(found, string(span.Word))
	}
	if len(found) == 0 {
		return original, nil
	}

	out := make([]byte, 0, len(original))
	for i := 0; i < len(original); {
		_, width := utf8.DecodeRuneInString(original[i:])
		if censored[i] {
			out = utf8.AppendRune(out, m.censoredChar)
		} else {
			out = append(out, original[i:i+width]...)
		}
		i += width
	}

	m.log.Debug("Censored inbound line", "words", found)
	return string(out), found
}

// normalize transforms the input string into a searchable format and tracks original byte offsets.
// An invalid byte decodes as utf8.RuneError, a symbol, so it is treated as noise.
func (m *Moderator) normalize(input string) TextMapping {
	norm := make([]rune, 0, len(input))
	origIdx := make([]int, 0, len(input))

	for i := 0; i < len(input); {
		r, width := utf8.DecodeRuneInString(input[i:])
		clean := simplifyRune(r)
		if !isNoise(clean) {
			norm = append(norm, unicode.ToLower(clean))
			origIdx = append(origIdx, i)
		}
		i += width
	}
	return TextMapping{Normalized: norm, OrigIdx: origIdx}
}

// normalizeRunes applies simplification and noise removal to a slice of runes.
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

// simplifyRune maps common Leet speak characters back to their standard alphabet counterparts.
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

// isNoise identifies characters that should be ignored during the pattern matching phase.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
