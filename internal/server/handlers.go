package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"edgeroute/internal/achievements"
	"edgeroute/internal/analytics"
	"edgeroute/internal/db"
	"edgeroute/internal/eggs"
	"edgeroute/internal/metrics"
	"edgeroute/internal/sessions"
	"edgeroute/internal/wshub"
)

var (
	errRateLimited  = errors.New("too many inputs")
	errUnknownInput = errors.New("unknown input type")
)

// session resolves the caller's session, creating the visitor and session
// cookies as needed.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*sessions.Session, error) {
	visitorID := ""
	if c, err := r.Cookie(visitorCookie); err == nil && uuid.Validate(c.Value) == nil {
		visitorID = c.Value
	}
	if visitorID == "" {
		visitorID = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     visitorCookie,
			Value:    visitorID,
			Path:     "/",
			MaxAge:   visitorMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess := s.Sessions.Get(c.Value); sess != nil && sess.VisitorID == visitorID {
			sess.Touch(s.Clock.Now())
			return sess, nil
		}
	}

	// A missing or stale session cookie rejoins the visitor's live session,
	// so one browser cannot fan out into many sessions.
	sess := s.Sessions.ForVisitor(visitorID)
	if sess != nil {
		sess.Touch(s.Clock.Now())
	} else {
		var err error
		sess, err = s.Sessions.Create(visitorID)
		if err != nil {
			return nil, err
		}
		if s.DB != nil {
			if err := s.DB.TouchVisitor(visitorID); err != nil {
				s.Log.Warn("touching visitor", zap.Error(err))
			}
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

func (s *Server) mustSession(w http.ResponseWriter, r *http.Request) *sessions.Session {
	sess, err := s.session(w, r)
	if err != nil {
		s.Log.Error("resolving session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return nil
	}
	return sess
}

// applyInput feeds one client input to the session engine. HTTP and
// WebSocket clients share it.
func (s *Server) applyInput(sess *sessions.Session, msg wshub.ClientMessage) error {
	now := s.Clock.Now()
	sess.Touch(now)
	if !sess.AllowInput(now) {
		metrics.InputRejected()
		return errRateLimited
	}
	switch msg.Type {
	case wshub.TypeKey:
		sess.Engine.HandleKey(msg.Key, now)
	case wshub.TypeClick:
		sess.Engine.HandleClick(msg.Path, now)
	case wshub.TypeView:
		sess.Engine.ViewPath(msg.URL)
	case wshub.TypeClose:
		sess.Engine.CloseGame()
	case wshub.TypeDismiss:
		sess.Engine.DismissToast(msg.ID)
	default:
		return errUnknownInput
	}
	metrics.InputReceived(msg.Type)
	return nil
}

func (s *Server) recordUnlock(visitorID string, u achievements.Unlocked) {
	if s.UnlockBuffer == nil {
		return
	}
	select {
	case s.UnlockBuffer <- db.UnlockRecord{VisitorID: visitorID, AchievementID: u.ID, UnlockedAt: u.At}:
	default:
		s.Log.Warn("unlock buffer full, dropping audit record", zap.String("achievement", u.ID))
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := s.mustSession(w, r)
	if sess == nil {
		return
	}
	data := struct {
		SessionID    string
		Greeting     []string
		Achievements []achievements.Achievement
		Retro        bool
	}{
		SessionID:    sess.ID,
		Greeting:     eggs.ConsoleGreeting,
		Achievements: sess.Engine.Achievements(),
		Retro:        sess.Engine.RetroTheme(),
	}
	if err := s.Tmpl.ExecuteTemplate(w, "index", data); err != nil {
		s.Log.Error("rendering index", zap.Error(err))
		http.Error(w, "Error rendering home page", http.StatusInternalServerError)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := s.mustSession(w, r)
	if sess == nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	msgChan := sess.Broadcaster.Subscribe()
	defer sess.Broadcaster.Unsubscribe(msgChan)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\n", msg.Event)
			for _, line := range strings.Split(msg.Data, "\n") {
				fmt.Fprintf(w, "data: %s\n", line)
			}
			fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}

func (s *Server) decodeAndApply(w http.ResponseWriter, r *http.Request, typ string) {
	sess := s.mustSession(w, r)
	if sess == nil {
		return
	}
	var msg wshub.ClientMessage
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&msg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	msg.Type = typ
	if typ == wshub.TypeKey && msg.Key == "" {
		writeError(w, http.StatusBadRequest, "key required")
		return
	}
	s.writeInputResult(w, sess, s.applyInput(sess, msg))
}

func (s *Server) writeInputResult(w http.ResponseWriter, sess *sessions.Session, err error) {
	switch {
	case errors.Is(err, errRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"game":  sess.Engine.GameView(),
			"retro": sess.Engine.RetroTheme(),
		})
	}
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	s.decodeAndApply(w, r, wshub.TypeKey)
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	s.decodeAndApply(w, r, wshub.TypeClick)
}

func (s *Server) handleCloseGame(w http.ResponseWriter, r *http.Request) {
	s.decodeAndApply(w, r, wshub.TypeClose)
}

func (s *Server) handleDismissToast(w http.ResponseWriter, r *http.Request) {
	sess := s.mustSession(w, r)
	if sess == nil {
		return
	}
	msg := wshub.ClientMessage{Type: wshub.TypeDismiss, ID: r.PathValue("id")}
	s.writeInputResult(w, sess, s.applyInput(sess, msg))
}

func (s *Server) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	sess := s.mustSession(w, r)
	if sess == nil {
		return
	}
	counted := sess.Engine.ViewPath(r.URL.Path)
	writeJSON(w, http.StatusOK, map[string]any{
		"roadmap": r.PathValue("id"),
		"counted": counted,
	})
}

func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"greeting": eggs.ConsoleGreeting})
}

func (s *Server) handleConsoleSecret(w http.ResponseWriter, r *http.Request) {
	sess := s.mustSession(w, r)
	if sess == nil {
		return
	}
	reward := sess.Engine.ConsoleSecret()
	writeJSON(w, http.StatusOK, map[string]any{
		"lines":  eggs.SecretMessageLines,
		"result": reward,
	})
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	sess := s.mustSession(w, r)
	if sess == nil {
		return
	}
	body := map[string]any{
		"achievements": sess.Engine.Achievements(),
		"persistent":   sess.Engine.Persistent(),
		"toasts":       sess.Engine.Toasts(),
	}
	if s.DB != nil {
		if v, err := s.DB.GetVisitor(sess.VisitorID); err == nil {
			body["first_seen"] = v.FirstSeen
		} else {
			s.Log.Debug("loading visitor", zap.Error(err))
		}
		if ids, err := s.DB.GetVisitorUnlocks(sess.VisitorID); err == nil {
			body["recorded"] = ids
		} else {
			s.Log.Warn("loading recorded unlocks", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleAchievementStats(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "achievement statistics require a database connection")
		return
	}
	q := analytics.NewQueries(s.DB)
	summary, err := q.GetSummary(s.Eggs.Achievements, 10)
	if err != nil {
		s.Log.Error("loading achievement stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error loading statistics")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAdminPanel(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Guide     []eggs.GuideEntry
		Buttons   []eggs.GuideEntry
		Stats     eggs.AdminStats
		StatusURL string
		Interval  int64
	}{
		Guide:     eggs.AdminGuide,
		Buttons:   eggs.AdminButtons,
		Stats:     s.fakeStats(),
		StatusURL: eggs.AdminPanelPath + "/status",
		Interval:  eggs.AdminStatsInterval.Milliseconds(),
	}
	if err := s.Tmpl.ExecuteTemplate(w, "admin", data); err != nil {
		s.Log.Error("rendering admin panel", zap.Error(err))
		http.Error(w, "Error rendering admin panel", http.StatusInternalServerError)
	}
}

func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.fakeStats())
}

func (s *Server) fakeStats() eggs.AdminStats {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return eggs.FakeAdminStats(s.rng)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.DB != nil {
		if err := s.DB.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_error", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "sessions": s.Sessions.Count()})
}
