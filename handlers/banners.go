// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielhkuo/likey/ledger"
	"github.com/danielhkuo/likey/middleware"
	"github.com/danielhkuo/likey/models"
	"github.com/danielhkuo/likey/users"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type BannerHandler struct {
	ledger *ledger.Ledger
	users  *users.Store
}

func NewBannerHandler(l *ledger.Ledger, u *users.Store) *BannerHandler {
	return &BannerHandler{ledger: l, users: u}
}

// GetBanner handles GET /banners/{id}
func (h *BannerHandler) GetBanner(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	like, err := h.ledger.GetBanner(r.Context(), id)
	if err != nil {
		writeStoreError(w, "failed to load banner", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, like)
}

// GetVoter handles GET /banners/{id}/voters/{voter}
// Reports whether the user has liked the banner.
func (h *BannerHandler) GetVoter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	voterID, err := strconv.ParseInt(r.PathValue("voter"), 10, 64)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid voter id")
		return
	}

	if _, err := h.ledger.GetBanner(r.Context(), id); err != nil {
		writeStoreError(w, "failed to load banner", err)
		return
	}
	voted, err := h.ledger.HasVoted(r.Context(), id, voterID)
	if err != nil {
		writeStoreError(w, "failed to read vote marker", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoterResponse{LikeID: id, VoterID: voterID, Voted: voted})
}

// ListBanners handles GET /users/{id}/banners?limit=N
// Returns the owner's banners oldest first.
func (h *BannerHandler) ListBanners(w http.ResponseWriter, r *http.Request) {
	ownerID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	resp := models.BannerListResponse{OwnerID: ownerID, Banners: []models.Like{}}
	for like, err := range h.ledger.ListBanners(r.Context(), ownerID) {
		if err != nil {
			writeStoreError(w, "failed to list banners", err)
			return
		}
		resp.Banners = append(resp.Banners, like)
		if len(resp.Banners) == limit {
			break
		}
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetStats handles GET /stats
func (h *BannerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Stats(r.Context())
	if err != nil {
		writeStoreError(w, "failed to load stats", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, stats)
}

func writeStoreError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Banner not found")
	case errors.Is(err, models.ErrInvalidInput):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case models.IsRetryable(err):
		slog.Warn(msg, "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Store unavailable")
	default:
		slog.Error(msg, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Store error")
	}
}
