package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt"

	appjwt "forumchat/internal/pkg/auth/jwt"
	"forumchat/internal/pkg/errs"
)

// signToken builds a session token carrying identity claims, the way the
// collaborator issues them.
func signToken(t *testing.T, userID int, nickname string, expiresAt time.Time) string {
	t.Helper()

	claims := &appjwt.Payload{
		StandardClaims: gojwt.StandardClaims{ExpiresAt: expiresAt.Unix()},
		UserID:         userID,
		Nickname:       nickname,
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestLogin(t *testing.T) {
	t.Run("decodes identity from token claims", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Truncate(time.Second)
		token := signToken(t, 42, "alice", exp)

		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/login" || r.Method != http.MethodPost {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"token":"` + token + `"}`))
		}))

		ident, cerr := client.Login(context.Background(), "alice", "secret")
		if cerr != nil {
			t.Fatalf("Login returned error: %v", cerr)
		}
		if ident.User.ID != 42 || ident.User.Nickname != "alice" {
			t.Errorf("identity = %+v, want user 42/alice", ident.User)
		}
		if !ident.ExpiresAt.Equal(exp) {
			t.Errorf("ExpiresAt = %v, want %v", ident.ExpiresAt, exp)
		}
	})

	t.Run("rejected credentials map to ErrInvalidCredentials", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, cerr := client.Login(context.Background(), "alice", "wrong")
		if cerr == nil || cerr.Code != errs.ErrInvalidCredentials {
			t.Errorf("error = %v, want code %d", cerr, errs.ErrInvalidCredentials)
		}
	})

	t.Run("unreachable collaborator maps to ErrPersistenceUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		client, err := NewClient(srv.URL)
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		_, cerr := client.Login(context.Background(), "alice", "secret")
		if cerr == nil || cerr.Code != errs.ErrPersistenceUnavailable {
			t.Errorf("error = %v, want code %d", cerr, errs.ErrPersistenceUnavailable)
		}
	})
}

func TestRegister(t *testing.T) {
	t.Run("conflict maps to ErrUserAlreadyExists", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))

		cerr := client.Register(context.Background(), "alice", "a@example.com", "secret")
		if cerr == nil || cerr.Code != errs.ErrUserAlreadyExists {
			t.Errorf("error = %v, want code %d", cerr, errs.ErrUserAlreadyExists)
		}
	})
}

func TestSessionStatus(t *testing.T) {
	t.Run("authenticated session yields identity", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"isAuthenticated":true,"user":{"id":7,"nickname":"bob"}}`))
		}))

		ident, ok, cerr := client.SessionStatus(context.Background())
		if cerr != nil {
			t.Fatalf("SessionStatus returned error: %v", cerr)
		}
		if !ok || ident.User.ID != 7 || ident.User.Nickname != "bob" {
			t.Errorf("got ok=%v ident=%+v, want authenticated bob", ok, ident.User)
		}
	})

	t.Run("401 means not authenticated, not an error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, ok, cerr := client.SessionStatus(context.Background())
		if cerr != nil {
			t.Fatalf("SessionStatus returned error: %v", cerr)
		}
		if ok {
			t.Error("got ok=true, want false")
		}
	})
}

func TestMessages(t *testing.T) {
	t.Run("normalizes both field spellings", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("user_id"); got != "9" {
				t.Errorf("user_id = %q, want 9", got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"messages":[
				{"id":1,"sender_id":9,"receiver_id":2,"content":"old","created_at":"2026-08-28T10:00:00Z"},
				{"id":2,"senderId":2,"receiverId":9,"content":"new","createdAt":"2026-08-28T10:00:05Z"}
			]}`))
		}))

		msgs, cerr := client.Messages(context.Background(), 9, 10, 0)
		if cerr != nil {
			t.Fatalf("Messages returned error: %v", cerr)
		}
		if len(msgs) != 2 {
			t.Fatalf("got %d messages, want 2", len(msgs))
		}
		if msgs[0].SenderID != 9 || msgs[1].SenderID != 2 {
			t.Errorf("sender ids = %d, %d; want 9, 2", msgs[0].SenderID, msgs[1].SenderID)
		}
		if msgs[1].CreatedAt.Sub(msgs[0].CreatedAt) != 5*time.Second {
			t.Errorf("timestamps not normalized: %v vs %v", msgs[0].CreatedAt, msgs[1].CreatedAt)
		}
		if !msgs[0].Delivered {
			t.Error("history messages must be marked delivered")
		}
	})

	t.Run("expired session maps to ErrSessionExpired", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, cerr := client.Messages(context.Background(), 9, 10, 0)
		if cerr == nil || cerr.Code != errs.ErrSessionExpired {
			t.Errorf("error = %v, want code %d", cerr, errs.ErrSessionExpired)
		}
	})
}

func TestSendMessage(t *testing.T) {
	t.Run("accepts the nested response shape", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"message":{"id":55,"sender_id":1,"receiver_id":2,"content":"hello","created_at":"2026-08-28T12:00:00Z"}}`))
		}))

		m, cerr := client.SendMessage(context.Background(), 2, "hello")
		if cerr != nil {
			t.Fatalf("SendMessage returned error: %v", cerr)
		}
		if m.ID != 55 || m.ReceiverID != 2 || m.Content != "hello" {
			t.Errorf("message = %+v, want id 55 to peer 2", m)
		}
	})

	t.Run("accepts the flat response shape", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":56,"sender_id":1,"receiver_id":2,"content":"hi"}`))
		}))

		m, cerr := client.SendMessage(context.Background(), 2, "hi")
		if cerr != nil {
			t.Fatalf("SendMessage returned error: %v", cerr)
		}
		if m.ID != 56 {
			t.Errorf("message id = %d, want 56", m.ID)
		}
	})

	t.Run("rejected write maps to ErrSendRejected", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))

		_, cerr := client.SendMessage(context.Background(), 2, "hi")
		if cerr == nil || cerr.Code != errs.ErrSendRejected {
			t.Errorf("error = %v, want code %d", cerr, errs.ErrSendRejected)
		}
	})
}

func TestConversations(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"conversations":[
			{"user_id":3,"nickname":"carol","last_message":"see you","last_message_time":"2026-08-28T09:00:00Z","unread_count":2}
		]}`))
	}))

	sums, cerr := client.Conversations(context.Background(), 20)
	if cerr != nil {
		t.Fatalf("Conversations returned error: %v", cerr)
	}
	if len(sums) != 1 || sums[0].PeerID != 3 || sums[0].Unread != 2 {
		t.Errorf("summaries = %+v, want one row for peer 3 with 2 unread", sums)
	}
	if sums[0].LastActivity.IsZero() {
		t.Error("last activity timestamp not parsed")
	}
}

func TestUnreadCount(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":4}`))
	}))

	n, cerr := client.UnreadCount(context.Background())
	if cerr != nil {
		t.Fatalf("UnreadCount returned error: %v", cerr)
	}
	if n != 4 {
		t.Errorf("count = %d, want 4", n)
	}
}

func TestSessionCookiePersists(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"user":{"id":1,"nickname":"alice"}}`))
		case "/api/users":
			if c, err := r.Cookie("session"); err != nil || c.Value != "abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"users":[{"id":2,"nickname":"bob"}]}`))
		}
	}))

	if _, cerr := client.Login(context.Background(), "alice", "secret"); cerr != nil {
		t.Fatalf("Login returned error: %v", cerr)
	}
	users, cerr := client.Users(context.Background())
	if cerr != nil {
		t.Fatalf("Users returned error: %v", cerr)
	}
	if len(users) != 1 || users[0].Nickname != "bob" {
		t.Errorf("users = %+v, want bob", users)
	}
}
