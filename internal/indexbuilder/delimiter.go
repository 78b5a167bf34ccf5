package indexbuilder

import "github.com/feedpipe/catalog-worker/pkg/schema"

// DetectDelimiter scores each candidate delimiter by occurrence count
// in line and returns the winner, ties broken by schema.CandidateDelimiters'
// fixed order (tab, semicolon, comma, pipe).
func DetectDelimiter(line string) (schema.Delimiter, bool) {
	best := schema.Delimiter(0)
	bestCount := 0
	found := false

	for _, d := range schema.CandidateDelimiters {
		count := 0
		for i := 0; i < len(line); i++ {
			if line[i] == byte(d) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			best = d
			found = true
		}
	}

	if !found || bestCount == 0 {
		return 0, false
	}
	return best, true
}
