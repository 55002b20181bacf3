/*
Package main is the entry point for the forum chat client.

It is responsible for loading configuration, initializing the global logging
system, authenticating against the persistence API, wiring the synchronization
engine, bringing the realtime link up, and gracefully handling operating system
interrupt signals (SIGINT, SIGTERM) so the session signs off cleanly.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"forumchat/internal/api"
	"forumchat/internal/app/conn"
	"forumchat/internal/app/convo"
	"forumchat/internal/app/msgsync"
	"forumchat/internal/app/session"
	"forumchat/internal/configs"
	"forumchat/internal/pkg/limiter"
	"forumchat/internal/pkg/logx"
	"forumchat/internal/pkg/randx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")

	// Distinguishes this session's log lines from a concurrent session of the
	// same user (whose sends come back as message_from_me echoes).
	instanceID, err := randx.InstanceID()
	if err != nil {
		logx.Fatal(err, "Failed to generate instance id")
	}

	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("server_url", cfg.ServerURL).
		Str("ws_url", cfg.WSURL).
		Str("instance_id", instanceID).
		Msg("Configuration loaded successfully")

	identifier := os.Getenv("CHAT_IDENTIFIER")
	password := os.Getenv("CHAT_PASSWORD")
	if identifier == "" || password == "" {
		fmt.Fprintln(os.Stderr, "FATAL: CHAT_IDENTIFIER and CHAT_PASSWORD must be set")
		os.Exit(1)
	}

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := api.NewClient(cfg.ServerURL)
	if err != nil {
		logx.Fatal(err, "Failed to create API client")
	}

	loginCtx, cancelLogin := context.WithTimeout(ctx, 10*time.Second)
	ident, cerr := client.Login(loginCtx, identifier, password)
	cancelLogin()
	if cerr != nil {
		logx.Fatal(cerr, "Login failed")
	}
	logx.Logger().Info().
		Int("user_id", ident.User.ID).
		Str("nickname", ident.User.Nickname).
		Str("instance_id", instanceID).
		Time("token_expires", ident.ExpiresAt).
		Msg("Signed in")

	// Wire the synchronization engine
	store := convo.NewStore()
	link := conn.NewManager(conn.Options{
		WSURL:                cfg.WSURL,
		ReconnectBase:        cfg.ReconnectBase,
		ReconnectMax:         cfg.ReconnectMax,
		ReconnectMaxAttempts: cfg.ReconnectMaxAttempts,
	})
	engine := msgsync.NewEngine(
		ident.User.ID,
		cfg.MaxMessageLength,
		store,
		client,
		link,
		limiter.NewPeerSendLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst),
	)

	sess := session.New(cfg, ident.User, client, link, engine, store, newConsoleNotifier())
	sess.Run()
	sess.Connect()

	// Wait for the interrupt signal, then sign the session off.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Signing off...")

	logoutCtx, cancelLogout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelLogout()
	sess.Logout(logoutCtx)
	sess.Close()

	logx.Info("Session closed.")
}
