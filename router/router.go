// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/likey/handlers"
	"github.com/danielhkuo/likey/ledger"
	"github.com/danielhkuo/likey/middleware"
	"github.com/danielhkuo/likey/users"
)

// Deps are the services the HTTP surface exposes.
type Deps struct {
	// Processor is nil in poll mode, which leaves /webhook unrouted.
	Processor handlers.UpdateProcessor
	Ledger    *ledger.Ledger
	Users     *users.Store
}

func NewRouter(deps Deps) *http.ServeMux {
	mux := http.NewServeMux()

	bannerHandler := handlers.NewBannerHandler(deps.Ledger, deps.Users)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Telegram updates
	if deps.Processor != nil {
		webhookHandler := handlers.NewWebhookHandler(deps.Processor)
		mux.HandleFunc("POST /webhook", middleware.Chain("webhook", webhookHandler.Receive))
	}

	// Read-only views
	mux.HandleFunc("GET /banners/{id}", middleware.Chain("get_banner", bannerHandler.GetBanner))
	mux.HandleFunc("GET /banners/{id}/voters/{voter}", middleware.Chain("get_voter", bannerHandler.GetVoter))
	mux.HandleFunc("GET /users/{id}/banners", middleware.Chain("list_banners", bannerHandler.ListBanners))
	mux.HandleFunc("GET /stats", middleware.Chain("stats", bannerHandler.GetStats))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("likey API v1"))
	})

	return mux
}
