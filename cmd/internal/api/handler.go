// Package api exposes the server-to-server resource endpoints the chat
// frontend calls: session establishment and logout, presence queries,
// profile/space CRUD delegation, read-state bookkeeping, and database
// provisioning.
//
// Every endpoint checks the shared passphrase before anything else; a
// mismatch yields the legacy not-found body and zero side effects.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pulse/cmd/internal/metrics"
	"pulse/cmd/internal/notification"
	"pulse/cmd/internal/presence"
	"pulse/cmd/internal/users"
	"pulse/cmd/security/passphrase"
	"pulse/cmd/security/token"
)

const passphraseMismatch = "passphrase doesn't match"

// Handler wires the resource endpoints to the presence, users, and
// notification services.
type Handler struct {
	log    *slog.Logger
	gate   *passphrase.Gate
	tokens *token.Codec

	sessions      *presence.Service
	users         users.Store
	notifications notification.Store
	notifier      presence.Notifier

	metrics   *metrics.Metrics
	defaultDB string
}

// NewHandler constructs the resource handler. A nil notifier falls back to a
// no-op one.
func NewHandler(
	log *slog.Logger,
	gate *passphrase.Gate,
	tokens *token.Codec,
	sessions *presence.Service,
	userStore users.Store,
	notifStore notification.Store,
	notifier presence.Notifier,
	m *metrics.Metrics,
	defaultDB string,
) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if gate == nil {
		return nil, errors.New("api: nil passphrase gate")
	}
	if tokens == nil {
		return nil, errors.New("api: nil token codec")
	}
	if sessions == nil {
		return nil, errors.New("api: nil presence service")
	}
	if userStore == nil {
		return nil, errors.New("api: nil users store")
	}
	if notifStore == nil {
		return nil, errors.New("api: nil notifications store")
	}
	if notifier == nil {
		notifier = presence.NopNotifier{}
	}
	if defaultDB == "" {
		defaultDB = "chat"
	}

	return &Handler{
		log:           log,
		gate:          gate,
		tokens:        tokens,
		sessions:      sessions,
		users:         userStore,
		notifications: notifStore,
		notifier:      notifier,
		metrics:       m,
		defaultDB:     defaultDB,
	}, nil
}

// Register wires the resource routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/getToken", h.handleGetToken)
	mux.HandleFunc("/addUser", h.handleAddUser)
	mux.HandleFunc("/updateValidity", h.handleUpdateValidity)
	mux.HandleFunc("/getActiveUsers", h.handleGetActiveUsers)
	mux.HandleFunc("/logout", h.handleLogout)
	mux.HandleFunc("/setAsAdmin", h.handleSetAsAdmin)
	mux.HandleFunc("/addUserFullNameAndEmail", h.handleAddUserFullNameAndEmail)
	mux.HandleFunc("/setSpaces", h.handleSetSpaces)
	mux.HandleFunc("/getUserFullName", h.handleGetUserFullName)
	mux.HandleFunc("/updateUnreadMessages", h.handleUpdateUnreadMessages)
	mux.HandleFunc("/initDB", h.handleInitDB)
	mux.HandleFunc("/dropDB", h.handleDropDB)
	mux.HandleFunc("/ensureIndexes", h.handleEnsureIndexes)
}

// authorized runs the passphrase gate. It must be the first thing every
// handler does; on failure the response is written and the handler returns.
func (h *Handler) authorized(w http.ResponseWriter, r *http.Request) bool {
	if h.gate.Authorize(r.FormValue("passphrase")) {
		return true
	}
	h.metrics.AuthFailure()
	writeMessage(w, http.StatusNotFound, passphraseMismatch)
	return false
}

func (h *Handler) dbName(r *http.Request) string {
	if db := r.FormValue("dbName"); db != "" {
		return db
	}
	return h.defaultDB
}

func (h *Handler) storageError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, presence.ErrBadDatabaseName) {
		writeMessage(w, http.StatusNotFound, "db name is invalid")
		return
	}
	h.log.Error(op+".fail", "err", err)
	writeMessage(w, http.StatusInternalServerError, "storage error")
}

// ---- session / presence ----

// handleGetToken mints the session token for a user. The token is a pure
// function of the user and the server configuration, so the frontend fetches
// it here and presents the same value back on /addUser and the websocket.
func (h *Handler) handleGetToken(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	user := r.FormValue("username")
	if user == "" {
		writeMessage(w, http.StatusNotFound, "username is null")
		return
	}

	writeText(w, h.tokens.Derive(user))
}

func (h *Handler) handleAddUser(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	user := r.FormValue("username")
	tok := r.FormValue("token")
	if user == "" {
		writeMessage(w, http.StatusNotFound, "username is null")
		return
	}
	if tok == "" {
		writeMessage(w, http.StatusNotFound, "token is null")
		return
	}

	now := time.Now().UTC()
	if err := h.sessions.Establish(r.Context(), now, h.dbName(r), user, tok); err != nil {
		h.storageError(w, "api.adduser", err)
		return
	}

	h.metrics.SessionEstablished()
	writeOK(w)
}

func (h *Handler) handleUpdateValidity(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	user := r.FormValue("username")
	tok := r.FormValue("token")
	if user == "" {
		writeMessage(w, http.StatusNotFound, "username is null")
		return
	}
	if tok == "" {
		writeMessage(w, http.StatusNotFound, "token is null")
		return
	}

	now := time.Now().UTC()
	if err := h.sessions.Refresh(r.Context(), now, h.dbName(r), user, tok); err != nil {
		h.storageError(w, "api.updatevalidity", err)
		return
	}

	h.metrics.Heartbeat()
	writeOK(w)
}

func (h *Handler) handleGetActiveUsers(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	user := r.FormValue("username")
	if user == "" {
		writeMessage(w, http.StatusNotFound, "username is null")
		return
	}

	now := time.Now().UTC()
	peers, err := h.sessions.ActivePeers(r.Context(), now, h.dbName(r), user)
	if err != nil {
		h.storageError(w, "api.getactiveusers", err)
		return
	}
	if peers == nil {
		peers = []string{}
	}
	writeJSON(w, http.StatusOK, peers)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	user := r.FormValue("username")
	if user == "" {
		writeMessage(w, http.StatusNotFound, "username is null")
		return
	}
	sessionID := r.FormValue("sessionId")
	now := time.Now().UTC()

	// Tell the user's other sessions which session is going away so each
	// can decide whether it is the one being closed.
	h.notifier.Publish(presence.NewSessionEnding(now, user, sessionID))

	// The frontend is authoritative for "was this the last session": only
	// it can see its own session table. When it says so, everyone learns
	// the user went offline. This emission is strictly second.
	if r.FormValue("uniqueSession") == "true" {
		h.notifier.Publish(presence.NewStatusChanged(now, user, presence.StatusOffline))
	}

	writeOK(w)
}

// ---- profile CRUD delegation ----

func (h *Handler) handleSetAsAdmin(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	user := r.FormValue("username")
	if user == "" {
		writeMessage(w, http.StatusNotFound, "username is null")
		return
	}

	admin := r.FormValue("isAdmin") == "true"
	if err := h.users.SetAdmin(r.Context(), h.dbName(r), user, admin); err != nil {
		h.storageError(w, "api.setasadmin", err)
		return
	}
	writeOK(w)
}

func (h *Handler) handleAddUserFullNameAndEmail(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	user := r.FormValue("username")
	if user == "" {
		writeMessage(w, http.StatusNotFound, "username is null")
		return
	}
	db := h.dbName(r)
	ctx := r.Context()

	// Best-effort, matching the frontend's expectations: a bad payload is
	// logged and skipped, the call itself still succeeds.
	if err := h.users.SetEmail(ctx, db, user, r.FormValue("email")); err != nil {
		h.log.Info("api.profile.email.skip", "user", user, "err", err)
	}

	var fullName string
	if err := decodeInline(r.FormValue("fullname"), &fullName); err != nil {
		h.log.Info("api.profile.fullname.skip", "user", user, "err", err)
	} else if err := h.users.SetFullName(ctx, db, user, fullName); err != nil {
		h.log.Info("api.profile.fullname.skip", "user", user, "err", err)
	}

	writeOK(w)
}

func (h *Handler) handleSetSpaces(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	user := r.FormValue("username")
	if user == "" {
		writeMessage(w, http.StatusNotFound, "username is null")
		return
	}

	var spaces []users.Space
	if err := decodeInline(r.FormValue("spaces"), &spaces); err != nil {
		h.log.Warn("api.setspaces.skip", "user", user, "err", err)
		writeOK(w)
		return
	}

	if err := h.users.SetSpaces(r.Context(), h.dbName(r), user, spaces); err != nil {
		h.storageError(w, "api.setspaces", err)
		return
	}
	writeOK(w)
}

func (h *Handler) handleGetUserFullName(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	user := r.FormValue("username")
	if user == "" {
		writeMessage(w, http.StatusNotFound, "username is null")
		return
	}

	name, err := h.users.FullName(r.Context(), h.dbName(r), user)
	if errors.Is(err, users.ErrNotFound) {
		// Legacy protocol: an unknown or unnamed user yields the literal
		// string "null" with 200, and the frontend deals with it.
		writeText(w, "null")
		return
	}
	if err != nil {
		h.storageError(w, "api.getuserfullname", err)
		return
	}
	writeText(w, name)
}

// ---- notification bookkeeping ----

func (h *Handler) handleUpdateUnreadMessages(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	user := r.FormValue("username")
	room := r.FormValue("room")
	if user == "" {
		writeMessage(w, http.StatusNotFound, "username is null")
		return
	}
	if room == "" {
		writeMessage(w, http.StatusNotFound, "room is null")
		return
	}

	// Space pseudo-users carry no personal notifications.
	if strings.HasPrefix(user, users.SpacePrefix) {
		writeOK(w)
		return
	}

	target := room
	if room == notification.RoomAll {
		target = ""
	}
	if err := h.notifications.MarkRead(r.Context(), h.dbName(r), user, target); err != nil {
		h.storageError(w, "api.updateunread", err)
		return
	}
	writeOK(w)
}

// ---- database provisioning ----

func (h *Handler) handleInitDB(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	db := r.FormValue("db")
	if db == "" {
		writeMessage(w, http.StatusNotFound, "db is null")
		return
	}

	if err := h.initAll(r.Context(), db); err != nil {
		h.storageError(w, "api.initdb", err)
		return
	}
	writeMessage(w, http.StatusOK, "using db="+db)
}

func (h *Handler) initAll(ctx context.Context, db string) error {
	if err := h.sessions.InitDB(ctx, db); err != nil {
		return err
	}
	if err := h.users.Init(ctx, db); err != nil {
		return err
	}
	return h.notifications.Init(ctx, db)
}

func (h *Handler) handleDropDB(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	db := r.FormValue("db")
	if db == "" {
		writeMessage(w, http.StatusNotFound, "db is null")
		return
	}

	// Tables first, schema (cascade) last.
	if err := h.users.Drop(r.Context(), db); err != nil {
		h.storageError(w, "api.dropdb", err)
		return
	}
	if err := h.notifications.Drop(r.Context(), db); err != nil {
		h.storageError(w, "api.dropdb", err)
		return
	}
	if err := h.sessions.DropDB(r.Context(), db); err != nil {
		h.storageError(w, "api.dropdb", err)
		return
	}
	writeMessage(w, http.StatusOK, "deleting db="+db)
}

func (h *Handler) handleEnsureIndexes(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	db := r.FormValue("db")
	if db == "" {
		writeMessage(w, http.StatusNotFound, "db is null")
		return
	}
	if db != h.defaultDB {
		writeMessage(w, http.StatusNotFound, "db name doesn't match")
		return
	}

	ctx := r.Context()
	if err := h.sessions.EnsureIndexes(ctx, db); err != nil {
		h.storageError(w, "api.ensureindexes", err)
		return
	}
	if err := h.users.EnsureIndexes(ctx, db); err != nil {
		h.storageError(w, "api.ensureindexes", err)
		return
	}
	if err := h.notifications.EnsureIndexes(ctx, db); err != nil {
		h.storageError(w, "api.ensureindexes", err)
		return
	}
	writeMessage(w, http.StatusOK, "indexes created or updated on db="+db)
}
