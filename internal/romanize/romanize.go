// Package romanize renders Korean Hangul in the Revised Romanization of Korean.
package romanize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	syllableFirst = 0xAC00
	syllableLast  = 0xD7AF

	leadBase   = 0x1100
	vowelBase  = 0x1161
	trailBase  = 0x11A7
	leadCount  = 19
	vowelCount = 21
	trailCount = 28
)

// Initial consonant indexes used by the sound change rules.
const (
	leadN     = 2
	leadR     = 5
	leadM     = 6
	leadG     = 0
	leadD     = 3
	leadJ     = 12
	leadIeung = 11
)

// Final consonant indexes used by the sound change rules.
const (
	trailNone  = 0
	trailN     = 4
	trailL     = 8
	trailM     = 16
	trailNg    = 21
	trailHieut = 27
)

//nolint:gochecknoglobals // Static romanization tables
var (
	leads = [leadCount]string{
		"g", "kk", "n", "d", "tt", "r", "m", "b", "pp", "s", "ss", "", "j", "jj", "ch", "k", "t", "p", "h",
	}
	vowels = [vowelCount]string{
		"a", "ae", "ya", "yae", "eo", "e", "yeo", "ye", "o", "wa", "wae", "oe", "yo", "u", "wo", "we", "wi",
		"yu", "eu", "ui", "i",
	}
	trails = [trailCount]string{
		"", "k", "k", "k", "n", "n", "n", "t", "l", "k", "m", "l", "l", "l", "p", "l", "m", "p", "p", "t",
		"t", "ng", "t", "t", "k", "t", "p", "t",
	}
	// liaison splits a final consonant carried onto a following silent ㅇ:
	// what stays as the coda, and what becomes the next onset.
	liaison = [trailCount][2]string{
		{"", ""}, {"", "g"}, {"", "kk"}, {"k", "s"}, {"", "n"}, {"n", "j"}, {"", "n"}, {"", "d"},
		{"", "r"}, {"l", "g"}, {"l", "m"}, {"l", "b"}, {"l", "s"}, {"l", "t"}, {"l", "p"}, {"", "r"},
		{"", "m"}, {"", "b"}, {"p", "s"}, {"", "s"}, {"", "ss"}, {"", "ng"}, {"", "j"}, {"", "ch"},
		{"", "k"}, {"", "t"}, {"", "p"}, {"", ""},
	}
	kFinals = map[int]bool{1: true, 2: true, 3: true, 9: true, 24: true}
	tFinals = map[int]bool{7: true, 19: true, 20: true, 22: true, 23: true, 25: true, 27: true}
	pFinals = map[int]bool{14: true, 17: true, 18: true, 26: true}
)

// HasHangul reports whether s contains a Hangul syllable.
func HasHangul(s string) bool {
	for _, r := range s {
		if r >= syllableFirst && r <= syllableLast {
			return true
		}
	}
	return false
}

// IfHangul returns the romanized form of s when it contains Hangul.
func IfHangul(s string) (string, bool) {
	if !HasHangul(s) {
		return "", false
	}
	return Romanize(s), true
}

type syllable struct {
	lead, vowel, trail int
}

type token struct {
	syl     *syllable
	literal rune
}

// Romanize converts every Hangul syllable in s and copies other runes through.
// Sound changes apply only between directly adjacent syllables.
func Romanize(s string) string {
	tokens := tokenize(s)

	onsets := make([]string, len(tokens))
	codas := make([]string, len(tokens))
	for i, t := range tokens {
		if t.syl != nil {
			onsets[i] = leads[t.syl.lead]
			codas[i] = trails[t.syl.trail]
		}
	}

	for i := 0; i+1 < len(tokens); i++ {
		cur, next := tokens[i].syl, tokens[i+1].syl
		if cur == nil || next == nil {
			continue
		}
		applyBoundary(cur, next, &codas[i], &onsets[i+1])
	}

	var b strings.Builder
	for i, t := range tokens {
		if t.syl == nil {
			b.WriteRune(t.literal)
			continue
		}
		b.WriteString(onsets[i])
		b.WriteString(vowels[t.syl.vowel])
		b.WriteString(codas[i])
	}
	return b.String()
}

func applyBoundary(cur, next *syllable, coda, onset *string) {
	t, l := cur.trail, next.lead
	if t == trailNone {
		return
	}

	switch {
	case l == leadIeung && t != trailNg:
		*coda, *onset = liaison[t][0], liaison[t][1]

	case l == leadN || l == leadM:
		switch {
		case kFinals[t]:
			*coda = "ng"
		case tFinals[t]:
			*coda = "n"
		case pFinals[t]:
			*coda = "m"
		case t == trailL && l == leadN:
			*onset = "l"
		}

	case l == leadR:
		switch {
		case t == trailL || t == trailN:
			*coda, *onset = "l", "l"
		case t == trailM || t == trailNg:
			*onset = "n"
		case kFinals[t]:
			*coda, *onset = "ng", "n"
		case pFinals[t]:
			*coda, *onset = "m", "n"
		case tFinals[t]:
			*coda, *onset = "n", "n"
		}

	case t == trailHieut && (l == leadG || l == leadD || l == leadJ):
		*coda = ""
		switch l {
		case leadG:
			*onset = "k"
		case leadD:
			*onset = "t"
		default:
			*onset = "ch"
		}
	}
}

// tokenize splits s into syllables, decomposed through NFD into conjoining
// jamo, and literal runes.
func tokenize(s string) []token {
	tokens := make([]token, 0, len(s))
	for _, r := range s {
		if r < syllableFirst || r > syllableLast {
			tokens = append(tokens, token{literal: r})
			continue
		}
		syl, ok := decompose(r)
		if !ok {
			tokens = append(tokens, token{literal: r})
			continue
		}
		tokens = append(tokens, token{syl: syl})
	}
	return tokens
}

func decompose(r rune) (*syllable, bool) {
	jamo := []rune(norm.NFD.String(string(r)))
	if len(jamo) < 2 || len(jamo) > 3 {
		return nil, false
	}
	syl := &syllable{
		lead:  int(jamo[0] - leadBase),
		vowel: int(jamo[1] - vowelBase),
	}
	if len(jamo) == 3 {
		syl.trail = int(jamo[2] - trailBase)
	}
	if syl.lead < 0 || syl.lead >= leadCount ||
		syl.vowel < 0 || syl.vowel >= vowelCount ||
		syl.trail < 0 || syl.trail >= trailCount {
		return nil, false
	}
	return syl, true
}
