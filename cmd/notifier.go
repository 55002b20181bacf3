package main

import (
	"github.com/rs/zerolog"

	"forumchat/internal/app/conn"
	"forumchat/internal/app/convo"
	"forumchat/internal/app/session"
	"forumchat/internal/pkg/logx"
)

// consoleNotifier renders session events to the structured log. A richer
// frontend would swap in its own session.Notifier here.
type consoleNotifier struct {
	logger zerolog.Logger
}

func newConsoleNotifier() *consoleNotifier {
	return &consoleNotifier{
		logger: logx.Logger().With().Str("component", "Console").Logger(),
	}
}

func (c *consoleNotifier) PeerListChanged(peers []convo.Peer) {
	c.logger.Debug().Int("peers", len(peers)).Msg("Peer list updated")
}

func (c *consoleNotifier) MessagesChanged(peerID int, hint session.ChangeHint, inserted int) {
	c.logger.Debug().Int("peer_id", peerID).Int("hint", int(hint)).Int("inserted", inserted).Msg("Conversation updated")
}

func (c *consoleNotifier) UnreadTotalChanged(total int) {
	c.logger.Info().Int("total", total).Msg("Unread total changed")
}

func (c *consoleNotifier) StatusChanged(status conn.Status) {
	c.logger.Info().Str("status", status.String()).Msg("Connection status changed")
}

func (c *consoleNotifier) Notify(text string) {
	c.logger.Info().Msg(text)
}
