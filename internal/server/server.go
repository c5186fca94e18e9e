package server

import (
	"encoding/json"
	"html/template"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"edgeroute/internal/clock"
	"edgeroute/internal/db"
	"edgeroute/internal/eggs"
	"edgeroute/internal/sessions"
)

const (
	visitorCookie = "visitor_id"
	sessionCookie = "session_id"
	visitorMaxAge = 365 * 24 * 60 * 60
)

type Server struct {
	Sessions *sessions.Store
	Eggs     *eggs.Config
	Tmpl     *template.Template
	DB       *db.DB // nil if no database configured
	// UnlockBuffer feeds the batch writer; nil if no database configured.
	UnlockBuffer chan db.UnlockRecord
	Clock        clock.Clock
	Log          *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(store *sessions.Store, cfg *eggs.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Sessions: store,
		Eggs:     cfg,
		Tmpl:     parseTemplates(),
		Clock:    clock.NewReal(),
		Log:      log.With(zap.String("component", "server")),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
