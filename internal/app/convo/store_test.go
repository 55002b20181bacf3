package convo

import (
	"testing"
	"time"

	"forumchat/internal/app/user"
)

func ts(sec int) time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(sec) * time.Second)
}

func TestAppendDeduplication(t *testing.T) {
	t.Run("should drop same sender and content within the skew window", func(t *testing.T) {
		s := NewStore()

		s.AppendIncoming(7, Message{SenderID: 7, Content: "hi", CreatedAt: ts(0)})
		inserted := s.AppendIncoming(7, Message{SenderID: 7, Content: "hi", CreatedAt: ts(0).Add(500 * time.Millisecond)})

		if inserted {
			t.Error("expected duplicate within window to be discarded")
		}
		if got := len(s.Messages(7)); got != 1 {
			t.Errorf("expected 1 cached message, got %d", got)
		}
	})

	t.Run("should keep distinct messages outside the window", func(t *testing.T) {
		s := NewStore()

		s.AppendIncoming(7, Message{SenderID: 7, Content: "hi", CreatedAt: ts(0)})
		inserted := s.AppendIncoming(7, Message{SenderID: 7, Content: "hi", CreatedAt: ts(2)})

		if !inserted {
			t.Error("expected message outside window to be kept")
		}
		if got := len(s.Messages(7)); got != 2 {
			t.Errorf("expected 2 cached messages, got %d", got)
		}
	})

	t.Run("should drop repeated server ids", func(t *testing.T) {
		s := NewStore()

		s.AppendIncoming(7, Message{ID: 42, SenderID: 7, Content: "a", CreatedAt: ts(0)})
		inserted := s.AppendIncoming(7, Message{ID: 42, SenderID: 7, Content: "edited", CreatedAt: ts(30)})

		if inserted {
			t.Error("expected duplicate server id to be discarded")
		}
	})

	t.Run("should drop repeated temp ids", func(t *testing.T) {
		s := NewStore()

		s.AppendOutgoing(7, Message{TempID: "tmp_x", SenderID: 1, Content: "a", CreatedAt: ts(0)})
		inserted := s.AppendOutgoing(7, Message{TempID: "tmp_x", SenderID: 1, Content: "a", CreatedAt: ts(40)})

		if inserted {
			t.Error("expected duplicate temp id to be discarded")
		}
	})
}

func TestOrdering(t *testing.T) {
	t.Run("should keep createdAt ascending order", func(t *testing.T) {
		s := NewStore()

		s.AppendIncoming(7, Message{SenderID: 7, Content: "second", CreatedAt: ts(10)})
		s.AppendIncoming(7, Message{SenderID: 7, Content: "first", CreatedAt: ts(5)})
		s.AppendIncoming(7, Message{SenderID: 7, Content: "third", CreatedAt: ts(15)})

		msgs := s.Messages(7)
		if msgs[0].Content != "first" || msgs[1].Content != "second" || msgs[2].Content != "third" {
			t.Errorf("unexpected order: %v, %v, %v", msgs[0].Content, msgs[1].Content, msgs[2].Content)
		}
	})

	t.Run("should preserve arrival order on timestamp ties", func(t *testing.T) {
		s := NewStore()

		s.AppendIncoming(7, Message{SenderID: 7, Content: "a", CreatedAt: ts(10)})
		s.AppendIncoming(7, Message{SenderID: 8, Content: "b", CreatedAt: ts(10)})

		msgs := s.Messages(7)
		if msgs[0].Content != "a" || msgs[1].Content != "b" {
			t.Errorf("tie should keep arrival order, got %v then %v", msgs[0].Content, msgs[1].Content)
		}
	})
}

func TestHistoryLoading(t *testing.T) {
	t.Run("should guard against concurrent loads", func(t *testing.T) {
		s := NewStore()
		s.Select(7, "alice")

		if !s.BeginLoad(7, true) {
			t.Fatal("first BeginLoad should succeed")
		}
		if s.BeginLoad(7, true) {
			t.Error("second BeginLoad while loading should be rejected")
		}
	})

	t.Run("should advance cursor and merge page", func(t *testing.T) {
		s := NewStore()
		s.Select(7, "alice")
		s.BeginLoad(7, true)

		page := []Message{
			{ID: 1, SenderID: 7, Content: "old", CreatedAt: ts(0)},
			{ID: 2, SenderID: 1, Content: "new", CreatedAt: ts(5)},
		}
		inserted := s.FinishLoad(7, page, true, true)

		if inserted != 2 {
			t.Errorf("expected 2 inserted, got %d", inserted)
		}

		offset, hasMore, isLoading := s.Cursor(7)
		if offset != 2 || !hasMore || isLoading {
			t.Errorf("unexpected cursor state: offset=%d hasMore=%v isLoading=%v", offset, hasMore, isLoading)
		}
	})

	t.Run("should not duplicate a message already received via push", func(t *testing.T) {
		s := NewStore()
		s.AppendIncoming(7, Message{SenderID: 7, Content: "hi", CreatedAt: ts(0)})

		s.BeginLoad(7, true)
		inserted := s.FinishLoad(7, []Message{
			{ID: 5, SenderID: 7, Content: "hi", CreatedAt: ts(0).Add(300 * time.Millisecond)},
		}, false, true)

		if inserted != 0 {
			t.Errorf("expected push/history duplicate to be dropped, inserted=%d", inserted)
		}
		if got := len(s.Messages(7)); got != 1 {
			t.Errorf("expected 1 message, got %d", got)
		}
	})

	t.Run("should stop paging on a short page", func(t *testing.T) {
		s := NewStore()
		s.BeginLoad(7, true)
		s.FinishLoad(7, []Message{{ID: 1, SenderID: 7, Content: "only", CreatedAt: ts(0)}}, false, true)

		if s.BeginLoad(7, false) {
			t.Error("loadOlder should be rejected when hasMore is false")
		}
	})

	t.Run("should reset flags on failure so retry works", func(t *testing.T) {
		s := NewStore()
		s.BeginLoad(7, true)
		s.FailLoad(7)

		_, hasMore, isLoading := s.Cursor(7)
		if isLoading || !hasMore {
			t.Errorf("expected retryable state, hasMore=%v isLoading=%v", hasMore, isLoading)
		}
		if !s.BeginLoad(7, true) {
			t.Error("retry after failure should be allowed")
		}
	})

	t.Run("should clear unread on initial load only", func(t *testing.T) {
		s := NewStore()
		s.IncrementUnread(7)
		s.IncrementUnread(7)

		s.BeginLoad(7, true)
		s.FinishLoad(7, nil, false, true)
		if got := s.Unread(7); got != 0 {
			t.Errorf("initial load should clear unread, got %d", got)
		}

		s.IncrementUnread(7)
		s.BeginLoad(7, true)
		s.FinishLoad(7, nil, false, false)
		if got := s.Unread(7); got != 1 {
			t.Errorf("older-page load should not clear unread, got %d", got)
		}
	})
}

func TestDeliveryMarks(t *testing.T) {
	t.Run("should promote temp id to server id", func(t *testing.T) {
		s := NewStore()
		s.AppendOutgoing(7, Message{TempID: "tmp_a", SenderID: 1, ReceiverID: 7, Content: "hello", CreatedAt: ts(0)})

		if !s.MarkDelivered(99, "") {
			t.Fatal("expected pending message to be promoted")
		}

		msgs := s.Messages(7)
		if len(msgs) != 1 {
			t.Fatalf("expected 1 message, got %d", len(msgs))
		}
		if msgs[0].ID != 99 || !msgs[0].Delivered || msgs[0].TempID != "tmp_a" {
			t.Errorf("unexpected promoted message: %+v", msgs[0])
		}
	})

	t.Run("should be idempotent on repeated acknowledgements", func(t *testing.T) {
		s := NewStore()
		s.AppendOutgoing(7, Message{TempID: "tmp_a", SenderID: 1, Content: "hello", CreatedAt: ts(0)})

		s.MarkDelivered(99, "")
		s.MarkDelivered(99, "")

		if got := len(s.Messages(7)); got != 1 {
			t.Errorf("repeated ack must not change entry count, got %d", got)
		}
	})

	t.Run("should report unknown acknowledgements", func(t *testing.T) {
		s := NewStore()
		if s.MarkDelivered(12345, "") {
			t.Error("ack with no candidates should report false")
		}
	})

	t.Run("should flag the newest pending message on failure", func(t *testing.T) {
		s := NewStore()
		s.AppendOutgoing(7, Message{TempID: "tmp_1", SenderID: 1, Content: "first", CreatedAt: ts(0)})
		s.AppendOutgoing(7, Message{TempID: "tmp_2", SenderID: 1, Content: "second", CreatedAt: ts(5)})

		if !s.MarkFailed(7) {
			t.Fatal("expected a pending message to be flagged")
		}

		msgs := s.Messages(7)
		if msgs[1].Failed != true || msgs[0].Failed != false {
			t.Errorf("expected only newest pending entry flagged: %+v", msgs)
		}
	})
}

func TestPeerDerivation(t *testing.T) {
	roster := []user.User{
		{ID: 1, Nickname: "zoe"},
		{ID: 2, Nickname: "alice"},
		{ID: 3, Nickname: "bob"},
	}
	online := func(nick string) bool { return nick == "alice" }

	t.Run("should sort active conversations first by recency", func(t *testing.T) {
		s := NewStore()
		s.AppendIncoming(1, Message{SenderID: 1, Content: "older", CreatedAt: ts(0)})
		s.AppendIncoming(3, Message{SenderID: 3, Content: "newer", CreatedAt: ts(60)})

		peers := s.Peers(roster, online)

		if peers[0].ID != 3 || peers[1].ID != 1 {
			t.Errorf("expected [bob zoe ...], got %v", peers)
		}
		if peers[2].ID != 2 {
			t.Errorf("expected alice appended after active peers, got %v", peers[2])
		}
		if !peers[2].Online {
			t.Error("alice should be marked online")
		}
	})

	t.Run("should sort inactive peers alphabetically", func(t *testing.T) {
		s := NewStore()
		peers := s.Peers(roster, online)

		if peers[0].Nickname != "alice" || peers[1].Nickname != "bob" || peers[2].Nickname != "zoe" {
			t.Errorf("expected alphabetical order, got %v", peers)
		}
	})
}

func TestApplySummaries(t *testing.T) {
	t.Run("should adopt summaries for unseen conversations", func(t *testing.T) {
		s := NewStore()
		s.ApplySummaries([]Summary{
			{PeerID: 7, Nickname: "alice", Unread: 3, LastMessage: "yo", LastActivity: ts(0)},
		})

		if got := s.Unread(7); got != 3 {
			t.Errorf("expected unread 3 from summary, got %d", got)
		}
	})

	t.Run("should not override fresher local state", func(t *testing.T) {
		s := NewStore()
		s.AppendIncoming(7, Message{SenderID: 7, Content: "fresh", CreatedAt: ts(100)})
		s.IncrementUnread(7)

		s.ApplySummaries([]Summary{
			{PeerID: 7, Nickname: "alice", Unread: 9, LastMessage: "stale", LastActivity: ts(50)},
		})

		if got := s.Unread(7); got != 1 {
			t.Errorf("stale summary must not override local unread, got %d", got)
		}

		sums := s.Summaries()
		if len(sums) != 1 || sums[0].LastMessage != "fresh" {
			t.Errorf("expected local last message kept, got %v", sums)
		}
	})
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.AppendIncoming(7, Message{SenderID: 7, Content: "hi", CreatedAt: ts(0)})
	s.IncrementUnread(7)

	s.Clear()

	if len(s.Messages(7)) != 0 || s.Unread(7) != 0 {
		t.Error("expected empty store after Clear")
	}

	// The store stays usable after logout.
	if !s.AppendIncoming(7, Message{SenderID: 7, Content: "again", CreatedAt: ts(5)}) {
		t.Error("store should accept messages after Clear")
	}
}
