package csv

import (
	"strings"
)

// sniffSeparators are the separators Sniff chooses from, in tie-break order.
var sniffSeparators = []rune{',', '\t', ';', '|'}

// Sniff guesses the dialect of sample, usually the first few kilobytes of a
// file, and returns DefaultReaderOptions with the detected separator.
func Sniff(sample string) ReaderOptions {
	opts := DefaultReaderOptions()
	opts.Comma = DetectSeparator(sample)
	return opts
}

// DetectSeparator returns the separator among comma, tab, semicolon and pipe
// that splits the records of sample most consistently. Quoted fields are
// honored, so separators inside quotes do not count. It returns ',' when no
// candidate splits the first record.
//
// A separator that yields the same field count on every record scores ten
// times that count; otherwise it scores the first record's count.
func DetectSeparator(sample string) rune {
	best, bestScore := ',', 0
	for _, sep := range sniffSeparators {
		if score := separatorScore(sample, sep); score > bestScore {
			best, bestScore = sep, score
		}
	}
	return best
}

func separatorScore(sample string, sep rune) int {
	opts := DefaultReaderOptions()
	opts.Comma = sep
	opts.LazyQuotes = true
	opts.SkipEmptyLines = true

	var counts []int
	r := newStringReader(sample, opts)
	for {
		rec, err := r.Next()
		if err != nil {
			// a malformed record ends the sample
			break
		}
		counts = append(counts, rec.Len())
	}
	// the last record of a sample without a terminator may be cut short
	if len(counts) > 1 && !strings.HasSuffix(sample, "\n") && !strings.HasSuffix(sample, "\r") {
		counts = counts[:len(counts)-1]
	}

	if len(counts) == 0 || counts[0] < 2 {
		return 0
	}
	for _, n := range counts[1:] {
		if n != counts[0] {
			return counts[0]
		}
	}
	return counts[0] * 10
}
