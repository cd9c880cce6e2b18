package domain

import (
	"time"
)

// Outcome is the result of a single pairwise judgment.
type Outcome string

// Recognized judgment outcomes.
const (
	// OutcomeTie places both items in the same equivalence cluster.
	OutcomeTie Outcome = "tie"

	// OutcomeABeforeB records that item A precedes item B.
	OutcomeABeforeB Outcome = "a_before_b"

	// OutcomeBBeforeA records that item B precedes item A.
	OutcomeBBeforeA Outcome = "b_before_a"
)

// ParseOutcome converts a wire value into an Outcome. Any value other than
// the three recognized outcomes yields an InputError.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if !o.Valid() {
		return "", NewInputError("result", s, ErrUnknownOutcome)
	}
	return o, nil
}

// Valid reports whether o is one of the recognized outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeTie, OutcomeABeforeB, OutcomeBBeforeA:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the outcome.
func (o Outcome) String() string { return string(o) }

// Judgment is one recorded comparison between two items.
type Judgment struct {
	// RespondentID identifies who made the judgment.
	RespondentID string `json:"respondent_id" cbor:"respondent_id"`

	// ItemA and ItemB are the compared item indices, as presented.
	ItemA int `json:"item_a" cbor:"item_a"`
	ItemB int `json:"item_b" cbor:"item_b"`

	// Result is the outcome chosen by the respondent.
	Result Outcome `json:"result" cbor:"result"`

	// RecordedAt is when the judgment was logged.
	RecordedAt time.Time `json:"recorded_at" cbor:"recorded_at"`
}

// Pair is an unordered pair of cluster roots presented for judgment.
// A is always the root that appears first in root-list order.
type Pair struct {
	A int `json:"a"`
	B int `json:"b"`
}
