package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/encero/chores-tracker-sub000/internal/auth"
	"github.com/encero/chores-tracker-sub000/internal/middleware"
	"github.com/encero/chores-tracker-sub000/internal/store"
)

type AuthHandler struct {
	settings *store.SettingsStore
	sessions *store.SessionStore
	ttl      time.Duration
	logger   *slog.Logger
}

func NewAuthHandler(settings *store.SettingsStore, sessions *store.SessionStore, ttl time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		settings: settings,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
	}
}

// SeedParentPIN stores pin as the parent PIN unless one is already set.
func (h *AuthHandler) SeedParentPIN(pin string) error {
	if pin == "" {
		return nil
	}
	existing, err := h.settings.Get(store.ParentPINKey)
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}
	hash, err := auth.HashPIN(pin)
	if err != nil {
		return err
	}
	return h.settings.Set(store.ParentPINKey, hash)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, r *http.Request, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	hash, err := h.settings.Get(store.ParentPINKey)
	if err != nil {
		h.logger.Error("load parent pin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check PIN")
		return
	}
	if hash == "" {
		writeError(w, http.StatusConflict, "no parent PIN configured")
		return
	}
	if !auth.CheckPIN(hash, req.PIN) {
		h.logger.Warn("parent login failed", "remote", middleware.RealIP(r))
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}

	sess, err := h.sessions.Create(h.ttl)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.setCookie(w, r, sess.Token, sess.ExpiresAt)
	writeJSON(w, http.StatusOK, map[string]any{"expires_at": sess.ExpiresAt})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	h.setCookie(w, r, "", time.Unix(0, 0))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	hash, err := h.settings.Get(store.ParentPINKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{
		"parent":  auth.IsParent(r.Context()),
		"pin_set": hash != "",
	})
}

// SetParentPIN sets the parent PIN. The first PIN may be set without a
// session; changing it afterwards requires one.
func (h *AuthHandler) SetParentPIN(w http.ResponseWriter, r *http.Request) {
	existing, err := h.settings.Get(store.ParentPINKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check PIN")
		return
	}
	if existing != "" && !auth.IsParent(r.Context()) {
		writeError(w, http.StatusUnauthorized, "parent login required")
		return
	}

	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	hash, err := auth.HashPIN(req.PIN)
	if errors.Is(err, auth.ErrInvalidPIN) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash PIN")
		return
	}
	if err := h.settings.Set(store.ParentPINKey, hash); err != nil {
		h.logger.Error("store parent pin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}
