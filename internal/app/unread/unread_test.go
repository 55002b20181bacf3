package unread

import (
	"testing"

	"forumchat/internal/app/convo"
)

func TestRecompute(t *testing.T) {
	t.Run("should sum per-peer counts", func(t *testing.T) {
		a := NewAggregator()

		total, changed := a.Recompute([]convo.Summary{
			{PeerID: 1, Unread: 2},
			{PeerID: 2, Unread: 0},
			{PeerID: 3, Unread: 5},
		})

		if total != 7 {
			t.Errorf("expected total 7, got %d", total)
		}
		if !changed {
			t.Error("expected change from initial zero")
		}
		if a.Total() != 7 {
			t.Errorf("expected stored total 7, got %d", a.Total())
		}
	})

	t.Run("should report no change for an identical total", func(t *testing.T) {
		a := NewAggregator()
		a.Recompute([]convo.Summary{{PeerID: 1, Unread: 3}})

		// Different distribution, same sum.
		total, changed := a.Recompute([]convo.Summary{
			{PeerID: 1, Unread: 1},
			{PeerID: 2, Unread: 2},
		})

		if total != 3 || changed {
			t.Errorf("expected unchanged total 3, got total=%d changed=%v", total, changed)
		}
	})

	t.Run("should drop to zero for empty summaries", func(t *testing.T) {
		a := NewAggregator()
		a.Recompute([]convo.Summary{{PeerID: 1, Unread: 4}})

		total, changed := a.Recompute(nil)
		if total != 0 || !changed {
			t.Errorf("expected total 0 with change, got total=%d changed=%v", total, changed)
		}
	})
}
