package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/couchcryptid/pukaar-service/internal/adapter/sqlite"
	"github.com/couchcryptid/pukaar-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

// FavoritesStore persists favorites and preferences.
type FavoritesStore interface {
	List(ctx context.Context) ([]domain.FavoriteEntry, error)
	Get(ctx context.Context, key string) (domain.FavoriteEntry, error)
	Contains(ctx context.Context, key string) (bool, error)
	Toggle(ctx context.Context, key string, snapshot domain.ServiceRecord) (sqlite.ToggleResult, error)
	Remove(ctx context.Context, key string) error
	GetPreference(ctx context.Context, key string) (json.RawMessage, error)
	SetPreference(ctx context.Context, key string, value json.RawMessage) error
}

type favoriteView struct {
	domain.FavoriteEntry
	CallNumber string `json:"call_number"`
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.deps.Favorites.List(r.Context())
	if err != nil {
		s.storeError(w, "list favorites", err)
		return
	}
	views := make([]favoriteView, len(favs))
	for i, f := range favs {
		views[i] = favoriteView{FavoriteEntry: f, CallNumber: f.CallNumber()}
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"favorites": views})
}

// handleToggleFavorite saves the posted record snapshot, or removes it when
// it is already a favorite. An added favorite is echoed back as stored.
func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var rec domain.ServiceRecord
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid record: "+err.Error())
		return
	}
	key := strings.TrimSpace(rec.IdentityKey)
	if key == "" && rec.ID != "" && rec.Category != "" {
		key = domain.IdentityKey(rec.Category, rec.ID, rec.Latitude, rec.Longitude)
	}
	if key == "" {
		writeError(w, http.StatusBadRequest, "identity_key is required")
		return
	}

	res, err := s.deps.Favorites.Toggle(r.Context(), key, rec)
	if err != nil {
		s.storeError(w, "toggle favorite", err)
		return
	}
	action := "removed"
	if res.Added {
		action = "added"
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.FavoriteToggles.WithLabelValues(action).Inc()
	}
	s.logger.Info("favorite toggled", "identity_key", key, "action", action)

	body := map[string]any{"identity_key": key, "added": res.Added}
	if res.Added {
		saved, err := s.deps.Favorites.Get(r.Context(), key)
		if err != nil {
			s.storeError(w, "get favorite", err)
			return
		}
		body["favorite"] = favoriteView{FavoriteEntry: saved, CallNumber: saved.CallNumber()}
	}
	sharedobs.WriteJSON(w, http.StatusOK, body)
}

func (s *Server) handleContainsFavorite(w http.ResponseWriter, r *http.Request) {
	key, ok := favoriteKey(w, r)
	if !ok {
		return
	}
	found, err := s.deps.Favorites.Contains(r.Context(), key)
	if err != nil {
		s.storeError(w, "contains favorite", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"identity_key": key, "favorite": found})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	key, ok := favoriteKey(w, r)
	if !ok {
		return
	}
	if err := s.deps.Favorites.Remove(r.Context(), key); err != nil {
		s.storeError(w, "remove favorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := s.deps.Favorites.GetPreference(r.Context(), key)
	if err != nil {
		s.storeError(w, "get preference", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(value) //nolint:errcheck
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if err := s.deps.Favorites.SetPreference(r.Context(), key, json.RawMessage(body)); err != nil {
		s.storeError(w, "set preference", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// favoriteKey reads the identity key from the wildcard segment. Clients may
// send the key's slash raw or percent-encoded.
func favoriteKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || strings.TrimSpace(key) == "" {
		writeError(w, http.StatusBadRequest, "invalid identity key")
		return "", false
	}
	return key, true
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sqlite.ErrUnknownPreference), errors.Is(err, sqlite.ErrInvalidPreference):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
