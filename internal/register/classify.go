// Package register classifies Korean sentence endings into formality registers.
// Classification is a pure suffix-table lookup; there are no error conditions.
package register

import (
	"strings"

	"github.com/kwritelab/kwrite/internal/types"
)

// Level is the expected formality level a text is checked against.
type Level string

// Expected levels supported by the conformance table.
const (
	LevelFormal Level = "formal"
	LevelPolite Level = "polite"
)

// Report is the output of classifying one text.
type Report struct {
	Sentences     []types.SentenceEndingRecord
	Dominant      types.RegisterClass
	AllConformant bool
}

// suffixPattern pairs an ending pattern with its register class.
type suffixPattern struct {
	suffix string
	class  types.RegisterClass
}

// patterns holds the fixed ending pattern sets. The longest matching suffix
// wins; on equal length the earlier entry wins.
var patterns = []suffixPattern{
	// Interrogative endings. Checked by suffix as well as by the '?' terminator.
	{"습니까", types.RegisterInterrogative},
	{"입니까", types.RegisterInterrogative},
	{"인가요", types.RegisterInterrogative},
	{"을까요", types.RegisterInterrogative},
	{"까요", types.RegisterInterrogative},
	{"나요", types.RegisterInterrogative},

	// Formal (hapsyoche) endings.
	{"드립니다", types.RegisterFormal},
	{"습니다", types.RegisterFormal},
	{"입니다", types.RegisterFormal},
	{"하십시오", types.RegisterFormal},
	{"십시오", types.RegisterFormal},
	{"니다", types.RegisterFormal},

	// Polite (haeyoche) endings.
	{"주세요", types.RegisterPolite},
	{"이에요", types.RegisterPolite},
	{"세요", types.RegisterPolite},
	{"에요", types.RegisterPolite},
	{"예요", types.RegisterPolite},
	{"어요", types.RegisterPolite},
	{"아요", types.RegisterPolite},
	{"해요", types.RegisterPolite},
	{"네요", types.RegisterPolite},
	{"죠", types.RegisterPolite},

	// Plain (haeche/haerache) endings.
	{"한다", types.RegisterPlain},
	{"했다", types.RegisterPlain},
	{"는다", types.RegisterPlain},
	{"있다", types.RegisterPlain},
	{"이다", types.RegisterPlain},
	{"다", types.RegisterPlain},
	{"해", types.RegisterPlain},
	{"됨", types.RegisterPlain},
	{"함", types.RegisterPlain},
}

// maxSuffixRunes is the recorded ending length limit.
const maxSuffixRunes = 6

// sentence is one split segment plus its terminator, kept internal to the split.
type sentence struct {
	text          string
	interrogative bool
}

// splitSentences splits text on sentence terminators and newlines, discarding
// empty segments and remembering which segments ended with a question mark.
func splitSentences(text string) []sentence {
	var result []sentence
	var current strings.Builder

	flush := func(interrogative bool) {
		trimmed := strings.TrimSpace(current.String())
		current.Reset()
		if trimmed != "" {
			result = append(result, sentence{text: trimmed, interrogative: interrogative})
		}
	}

	for _, r := range text {
		switch r {
		case '.', '!', '\n':
			flush(false)
		case '?':
			flush(true)
		default:
			current.WriteRune(r)
		}
	}
	flush(false)

	return result
}

// SplitSentences returns the sentence segments of text using the same split the
// classifier uses. Callers use it to derive sentence-length metrics.
func SplitSentences(text string) []string {
	parts := splitSentences(text)
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		segments = append(segments, p.text)
	}
	return segments
}

// classifySentence returns the register of one sentence segment.
func classifySentence(s sentence) types.RegisterClass {
	if s.interrogative {
		return types.RegisterInterrogative
	}

	best := types.RegisterOther
	bestLen := 0
	for _, p := range patterns {
		if strings.HasSuffix(s.text, p.suffix) {
			if n := len([]rune(p.suffix)); n > bestLen {
				best = p.class
				bestLen = n
			}
		}
	}
	return best
}

// conformant reports whether a register satisfies the expected level.
// Formal accepts formal and interrogative; polite accepts polite and
// interrogative. Everything else is non-conformant.
func conformant(class types.RegisterClass, expected Level) bool {
	switch expected {
	case LevelFormal:
		return class == types.RegisterFormal || class == types.RegisterInterrogative
	case LevelPolite:
		return class == types.RegisterPolite || class == types.RegisterInterrogative
	default:
		return false
	}
}

// endingSuffix returns the last maxSuffixRunes runes of a sentence.
func endingSuffix(text string) string {
	runes := []rune(text)
	if len(runes) <= maxSuffixRunes {
		return text
	}
	return string(runes[len(runes)-maxSuffixRunes:])
}

// Classify splits text into sentences and classifies each ending against the
// fixed pattern sets. Empty or unmatched input yields the degenerate report:
// no sentences, dominant register "other", vacuously conformant.
func Classify(text string, expected Level) Report {
	parts := splitSentences(text)

	report := Report{
		Sentences:     make([]types.SentenceEndingRecord, 0, len(parts)),
		Dominant:      types.RegisterOther,
		AllConformant: true,
	}

	counts := make(map[types.RegisterClass]int)
	firstSeen := make(map[types.RegisterClass]int)

	for i, part := range parts {
		class := classifySentence(part)
		ok := conformant(class, expected)
		report.Sentences = append(report.Sentences, types.SentenceEndingRecord{
			Index:        i,
			EndingSuffix: endingSuffix(part.text),
			Register:     class,
			Conformant:   ok,
		})
		if !ok {
			report.AllConformant = false
		}
		if _, seen := firstSeen[class]; !seen {
			firstSeen[class] = i
		}
		counts[class]++
	}

	// Dominant register: highest count, ties broken by first-encountered class.
	bestCount := 0
	bestFirst := len(parts)
	for class, count := range counts {
		if count > bestCount || (count == bestCount && firstSeen[class] < bestFirst) {
			report.Dominant = class
			bestCount = count
			bestFirst = firstSeen[class]
		}
	}

	return report
}
