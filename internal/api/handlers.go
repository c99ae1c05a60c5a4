package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studyquest/studyquest/internal/domain"
)

// ─── Stats & Sessions ───────────────────────────────────────────────────────

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id": s.engine.AccountID(),
		"stats":      s.engine.Stats(),
		"progress":   s.engine.Progress(),
		"streak":     s.engine.StreakStatus(),
	})
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	session := domain.StudySession{
		Subject:         req.Subject,
		DurationMinutes: req.DurationMinutes,
		Difficulty:      req.Difficulty,
		Mood:            req.Mood,
	}
	if req.Timestamp != nil {
		session.Timestamp = *req.Timestamp
	}

	out, err := s.engine.CompleteSession(r.Context(), session)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ─── Streak ─────────────────────────────────────────────────────────────────

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.StreakStatus())
}

func (s *Server) handleUseSaver(w http.ResponseWriter, r *http.Request) {
	if !s.engine.UseStreakSaver() {
		writeError(w, http.StatusConflict, "no streak savers available")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.StreakStatus())
}

func (s *Server) handleAcceptBreak(w http.ResponseWriter, r *http.Request) {
	if !s.engine.AcceptStreakBreak() {
		writeError(w, http.StatusConflict, "streak is not broken")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.StreakStatus())
}

// ─── Prestige ───────────────────────────────────────────────────────────────

func (s *Server) handlePrestige(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Prestige() {
		writeError(w, http.StatusConflict, "prestige requires level 100")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

// ─── Quests ─────────────────────────────────────────────────────────────────

func (s *Server) handleQuests(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"daily":  stats.DailyQuests,
		"weekly": stats.WeeklyQuests,
	})
}

func (s *Server) handleGenerateQuests(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if err := validate.Var(category, "oneof=daily weekly"); err != nil {
		writeError(w, http.StatusNotFound, "unknown quest category "+category)
		return
	}
	quests, err := s.engine.GenerateQuests(domain.QuestCategory(category))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quests": quests})
}

func (s *Server) handleQuestProgress(w http.ResponseWriter, r *http.Request) {
	var req QuestProgressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	events, err := s.engine.UpdateQuestProgress(domain.QuestType(req.Type), req.Amount,
		domain.QuestContext{Subject: req.Subject})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if events == nil {
		events = []domain.RewardEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// ─── Achievements ───────────────────────────────────────────────────────────

type achievementView struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Tier        domain.RewardTier `json:"tier"`
	XP          int64             `json:"xp"`
	Unlocked    bool              `json:"unlocked"`
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()
	defs := s.engine.Achievements()
	out := make([]achievementView, len(defs))
	for i, d := range defs {
		out[i] = achievementView{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Tier:        d.Tier,
			XP:          d.XP,
			Unlocked:    stats.HasAchievement(d.ID),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"achievements": out,
		"unlocked":     len(stats.Achievements),
		"total":        len(defs),
	})
}

func (s *Server) handleCheckAchievements(w http.ResponseWriter, r *http.Request) {
	events := s.engine.CheckAchievements()
	if events == nil {
		events = []domain.RewardEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// ─── Rewards ────────────────────────────────────────────────────────────────

func (s *Server) handleRewards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": s.engine.Rewards().Pending(),
		"dropped": s.engine.Rewards().Dropped(),
	})
}

func (s *Server) handleNextReward(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.engine.Rewards().Next()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDismissReward(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.engine.Rewards().Dismiss(id) {
		writeError(w, http.StatusNotFound, "reward "+id+" not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Errors ─────────────────────────────────────────────────────────────────

// writeDomainError maps engine errors onto HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrMissingSubject),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnknownQuestType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnknownQuestCategory):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
