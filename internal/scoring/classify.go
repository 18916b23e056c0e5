package scoring

import (
	"log"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
)

// Unclassified is returned only for an empty range table.
var Unclassified = catalog.ScoreRange{Min: 0, Max: 100, Label: "Unclassified", Color: "#999999"}

// Lookup returns the first range, in table order, that contains p.
func Lookup(ranges []catalog.ScoreRange, p int) (catalog.ScoreRange, bool) {
	for _, r := range ranges {
		if r.Contains(p) {
			return r, true
		}
	}
	return catalog.ScoreRange{}, false
}

// Classify is total: when no range contains p (a malformed table) it logs the
// defect and falls back to the last range of the table.
func Classify(ranges []catalog.ScoreRange, p int) catalog.ScoreRange {
	if r, ok := Lookup(ranges, p); ok {
		return r
	}
	if len(ranges) == 0 {
		log.Printf("ERROR: [Scoring] empty range table, percentage %d left unclassified", p)
		return Unclassified
	}
	last := ranges[len(ranges)-1]
	log.Printf("WARN: [Scoring] malformed range table: no range contains %d%%, using %q", p, last.Label)
	return last
}
