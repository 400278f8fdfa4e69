package domain

import "fmt"

// Quality is the three-level rating of an idea, ordered swill < plausible < genius.
type Quality string

const (
	QualitySwill     Quality = "swill"
	QualityPlausible Quality = "plausible"
	QualityGenius    Quality = "genius"
)

// qualities lists every rating in ascending order. The index is the ordinal
// persisted by the relational store.
var qualities = []Quality{QualitySwill, QualityPlausible, QualityGenius}

// Qualities returns all ratings, lowest first.
func Qualities() []Quality {
	out := make([]Quality, len(qualities))
	copy(out, qualities)
	return out
}

// Valid reports whether q is one of the three known ratings.
func (q Quality) Valid() bool {
	return q.Ordinal() >= 0
}

// Ordinal returns the position of q in the ordering, or -1 when unknown.
func (q Quality) Ordinal() int {
	for i, v := range qualities {
		if v == q {
			return i
		}
	}
	return -1
}

// Promote moves one step up. Genius holds.
func (q Quality) Promote() Quality {
	switch q {
	case QualitySwill:
		return QualityPlausible
	case QualityPlausible, QualityGenius:
		return QualityGenius
	default:
		return q
	}
}

// Demote moves one step down. Swill holds.
func (q Quality) Demote() Quality {
	switch q {
	case QualityGenius:
		return QualityPlausible
	case QualityPlausible, QualitySwill:
		return QualitySwill
	default:
		return q
	}
}

// Label is the capitalised display text ("Plausible").
func (q Quality) Label() string {
	switch q {
	case QualitySwill:
		return "Swill"
	case QualityPlausible:
		return "Plausible"
	case QualityGenius:
		return "Genius"
	default:
		return string(q)
	}
}

func (q Quality) String() string { return string(q) }

// ParseQuality converts raw input into a Quality.
func ParseQuality(raw string) (Quality, error) {
	q := Quality(raw)
	if !q.Valid() {
		return "", fmt.Errorf("unknown quality %q", raw)
	}
	return q, nil
}

// QualityFromOrdinal is the inverse of Ordinal.
func QualityFromOrdinal(n int) (Quality, error) {
	if n < 0 || n >= len(qualities) {
		return "", fmt.Errorf("quality ordinal %d out of range", n)
	}
	return qualities[n], nil
}
