package domain

import (
	"maps"
	"slices"
	"time"
)

// RankAssignment maps each item index to its dense rank. Ranks start at 1,
// no rank number is skipped, and every item of one equivalence cluster
// holds the same rank. A RankAssignment is created once per respondent at
// finalization and never modified afterwards.
type RankAssignment map[int]int

// Clone returns an independent copy of the assignment.
func (r RankAssignment) Clone() RankAssignment {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Levels returns the number of distinct ranks, R.
func (r RankAssignment) Levels() int {
	seen := make(map[int]struct{}, len(r))
	for _, rank := range r {
		seen[rank] = struct{}{}
	}
	return len(seen)
}

// Items returns the ranked item indices in ascending order.
func (r RankAssignment) Items() []int {
	return slices.Sorted(maps.Keys(r))
}

// Respondent is the persisted record of one survey participant.
type Respondent struct {
	// ID uniquely identifies the respondent (a UUID).
	ID string `json:"id" cbor:"id"`

	// IP is the remote address the survey was started from.
	IP string `json:"ip,omitempty" cbor:"ip,omitempty"`

	// UserAgent is the client's reported user agent.
	UserAgent string `json:"user_agent,omitempty" cbor:"user_agent,omitempty"`

	// CreatedAt records when the survey was started.
	CreatedAt time.Time `json:"created_at" cbor:"created_at"`

	// Ranking is the finalized assignment. It is nil until finalization.
	Ranking RankAssignment `json:"ranking,omitempty" cbor:"ranking,omitempty"`

	// FinalizedAt records when the ranking was stored.
	FinalizedAt *time.Time `json:"finalized_at,omitempty" cbor:"finalized_at,omitempty"`
}

// Finalized reports whether the respondent holds a ranking.
func (r Respondent) Finalized() bool { return r.Ranking != nil }

// AggregateStat summarizes one item across every finalized respondent.
type AggregateStat struct {
	// Item is the catalog index of the item.
	Item int `json:"item" cbor:"item"`

	// Name is the catalog name of the item.
	Name string `json:"name" cbor:"name"`

	// SumOfRanks is the total of every rank the item received.
	SumOfRanks int `json:"sum_of_ranks" cbor:"sum_of_ranks"`

	// VoteCount is the number of rankings the item appeared in.
	VoteCount int `json:"vote_count" cbor:"vote_count"`

	// Average is SumOfRanks/VoteCount rounded to two decimals.
	// It is nil when VoteCount is zero ("no data").
	Average *float64 `json:"average" cbor:"average"`

	// Median is the median rank, populated only by aggregators that
	// compute it.
	Median *float64 `json:"median,omitempty" cbor:"median,omitempty"`
}

// HasData reports whether the item received at least one vote.
func (s AggregateStat) HasData() bool { return s.VoteCount > 0 }
