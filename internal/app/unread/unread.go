/*
Package unread derives the total unread badge from per-peer conversation digests.

The aggregator keeps no state beyond the last computed total: the total is
recomputed from scratch after every mutation that can change any peer's unread
count, which eliminates drift between the badge and the per-peer counters.
*/
package unread

import "forumchat/internal/app/convo"

// Aggregator computes the total unread count across all conversations.
type Aggregator struct {
	total int
}

// NewAggregator constructs an Aggregator with a zero total.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Recompute sums the unread counts of the given summaries, stores the result as
// the new total, and reports whether the total changed since the previous
// computation. Callers notify the rendering collaborator only on change.
func (a *Aggregator) Recompute(summaries []convo.Summary) (total int, changed bool) {
	total = 0
	for _, s := range summaries {
		total += s.Unread
	}

	changed = total != a.total
	a.total = total
	return total, changed
}

// Total returns the last computed total.
func (a *Aggregator) Total() int {
	return a.total
}
