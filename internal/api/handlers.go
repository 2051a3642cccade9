package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/catalog"
	"github.com/yourusername/banker-pool/internal/leaderboard"
	"github.com/yourusername/banker-pool/internal/models"
	"github.com/yourusername/banker-pool/internal/raceday"
)

// OpenDayRequest opens a race day from an explicit race list, or from the catalog when races are omitted
type OpenDayRequest struct {
	Date   string        `json:"date" binding:"required"`
	Races  []models.Race `json:"races"`
	Source string        `json:"source"`
}

// WagerRequest places or replaces a wager
type WagerRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	RaceID        string `json:"race_id" binding:"required"`
	Horse         int    `json:"horse" binding:"required,gt=0"`
}

// BankerRequest selects a participant's banker race
type BankerRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	RaceID        string `json:"race_id" binding:"required"`
}

// WinnerRequest posts or corrects a race result
type WinnerRequest struct {
	Horse int `json:"horse" binding:"required,gt=0"`
}

// ParticipantRequest registers or renames a participant
type ParticipantRequest struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name"`
}

type handlers struct {
	days       *raceday.Service
	board      *leaderboard.Service
	reconciler *leaderboard.Reconciler
	catalog    catalog.Source
	logger     *logrus.Logger
}

func (h *handlers) openDay(c *gin.Context) {
	var req OpenDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	var (
		day *models.RaceDay
		err error
	)
	if len(req.Races) == 0 && (req.Source != "" || h.catalog != nil) {
		if h.catalog == nil || (req.Source != "" && !strings.EqualFold(req.Source, h.catalog.Name())) {
			respondError(c, h.logger, models.NewValidationError(models.CodeInvalidInput, "race catalog "+req.Source+" is not configured"))
			return
		}
		day, err = h.days.OpenFromCatalog(c.Request.Context(), req.Date, h.catalog)
	} else {
		day, err = h.days.OpenNewDay(c.Request.Context(), req.Date, req.Races)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, day)
}

func (h *handlers) currentDay(c *gin.Context) {
	day, err := h.days.CurrentDay(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, day)
}

func (h *handlers) index(c *gin.Context) {
	idx, err := h.days.Index(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, idx)
}

func (h *handlers) getDay(c *gin.Context) {
	day, err := h.days.GetDay(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, day)
}

func (h *handlers) placeWager(c *gin.Context) {
	var req WagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	day, err := h.days.PlaceWager(c.Request.Context(), c.Param("date"), req.ParticipantID, req.RaceID, req.Horse)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, day)
}

func (h *handlers) setBanker(c *gin.Context) {
	var req BankerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	day, err := h.days.SetBanker(c.Request.Context(), c.Param("date"), req.ParticipantID, req.RaceID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, day)
}

func (h *handlers) clearBanker(c *gin.Context) {
	day, err := h.days.ClearBanker(c.Request.Context(), c.Param("date"), c.Param("participant"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, day)
}

func (h *handlers) setWinner(c *gin.Context) {
	var req WinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	day, err := h.days.SetRaceWinner(c.Request.Context(), c.Param("date"), c.Param("race"), req.Horse)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, day)
}

func (h *handlers) recompute(c *gin.Context) {
	day, err := h.days.RecomputeDay(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, day)
}

func (h *handlers) complete(c *gin.Context) {
	result, err := h.days.CompleteDay(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// GET /api/v1/leaderboard?scope=all_time|single_day|current&date=YYYY-MM-DD
func (h *handlers) leaderboard(c *gin.Context) {
	scope, err := leaderboard.ParseScope(c.DefaultQuery("scope", string(leaderboard.ScopeAllTime)), c.Query("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	board, err := h.board.Leaderboard(c.Request.Context(), scope)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, board)
}

func (h *handlers) registerParticipant(c *gin.Context) {
	var req ParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.days.RegisterParticipant(c.Request.Context(), req.ID, req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

func (h *handlers) getParticipant(c *gin.Context) {
	p, err := h.days.GetParticipant(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

func (h *handlers) history(c *gin.Context) {
	history, err := h.board.ParticipantHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, history)
}

// reconcile runs the audit only; repairs are an operator action through poolctl
func (h *handlers) reconcile(c *gin.Context) {
	report, err := h.reconciler.Reconcile(c.Request.Context(), false)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, report)
}
