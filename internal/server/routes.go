package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"edgeroute/internal/achievements"
	"edgeroute/internal/config"
	"edgeroute/internal/db"
	"edgeroute/internal/eggs"
	"edgeroute/internal/metrics"
	"edgeroute/internal/sessions"
	"edgeroute/internal/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

func parseTemplates() *template.Template {
	return template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))
}

// Routes returns the HTTP handler for the server.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("POST /input/key", s.handleKey)
	mux.HandleFunc("POST /input/click", s.handleClick)
	mux.HandleFunc("POST /minigame/close", s.handleCloseGame)
	mux.HandleFunc("DELETE /toasts/{id}", s.handleDismissToast)
	mux.HandleFunc("GET /roadmap/{id}", s.handleRoadmap)
	mux.HandleFunc("GET /console", s.handleConsole)
	mux.HandleFunc("POST /console/secret", s.handleConsoleSecret)
	mux.HandleFunc("GET /achievements", s.handleAchievements)
	mux.HandleFunc("GET /achievements/stats", s.handleAchievementStats)
	mux.HandleFunc("GET "+eggs.AdminPanelPath, s.handleAdminPanel)
	mux.HandleFunc("GET "+eggs.AdminPanelPath+"/status", s.handleAdminStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

// Run serves until ctx is cancelled.
func Run(ctx context.Context, appCfg config.Config, log *zap.Logger) error {
	eggsCfg, err := eggs.LoadConfig(appCfg.EggsFile)
	if err != nil {
		return fmt.Errorf("loading easter eggs: %w", err)
	}

	var durable storage.Backend
	var database *db.DB
	switch {
	case appCfg.DatabaseURL != "":
		database, err = db.Connect(appCfg.DatabaseURL, log)
		if err != nil {
			log.Warn("database unavailable, running without database", zap.Error(err))
			break
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			log.Error("migration failed", zap.Error(err))
		}
		durable = database
	case appCfg.SQLitePath != "":
		lite, err := storage.OpenSQLite(appCfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("opening sqlite store: %w", err)
		}
		defer lite.Close()
		durable = lite
		log.Info("storing achievements in sqlite", zap.String("path", appCfg.SQLitePath))
	default:
		log.Info("DATABASE_URL and SQLITE_PATH not set, achievements kept in memory")
	}

	var srv *Server
	store := sessions.NewStore(sessions.Options{
		Eggs:        eggsCfg,
		Durable:     durable,
		Logger:      log,
		TTL:         appCfg.SessionTTL,
		InputRate:   appCfg.InputRate,
		InputBurst:  appCfg.InputBurst,
		MaxSessions: appCfg.MaxSessions,
		OnUnlock: func(visitorID string, u achievements.Unlocked) {
			srv.recordUnlock(visitorID, u)
		},
	})
	defer store.Close()

	srv = New(store, eggsCfg, log)
	if database != nil {
		srv.DB = database
		srv.UnlockBuffer = make(chan db.UnlockRecord, 1000)
		go unlockBatchWriter(ctx, database, srv.UnlockBuffer, srv.Log)
	}

	httpSrv := &http.Server{
		Addr:              "0.0.0.0:" + appCfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("url", "http://localhost:"+appCfg.Port))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("shutting down")
	return httpSrv.Shutdown(shutdownCtx)
}

// unlockBatchWriter flushes queued unlocks every 500ms or every 50 records.
func unlockBatchWriter(ctx context.Context, database *db.DB, buffer chan db.UnlockRecord, log *zap.Logger) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	batch := make([]db.UnlockRecord, 0, 50)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		var err error
		if len(batch) == 1 {
			// Unlocks are rare; most flushes carry one record.
			r := batch[0]
			err = database.RecordUnlock(r.VisitorID, r.AchievementID, r.UnlockedAt)
		} else {
			err = database.BatchRecordUnlocks(batch)
		}
		if err != nil {
			log.Error("recording unlocks", zap.Int("count", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case rec := <-buffer:
			batch = append(batch, rec)
			if len(batch) >= 50 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
