package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/middleware"
	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/pushp314/hackarena-backend/internal/services"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
)

// currentUser returns the authenticated user id. Routes that call it sit
// behind AuthMiddleware, so a missing id is a wiring bug rather than bad input.
func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString("userId")
	if userID == "" {
		_ = c.Error(apperrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

// bindJSON binds the request body and reports validation failures as 400s.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(apperrors.BadRequest("Invalid request body: " + err.Error()))
		return false
	}
	return true
}

// ListContests handles GET /contests
func ListContests(c *gin.Context) {
	contests, err := services.ListContests(c.Request.Context(), middleware.IsAdmin(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contests": contests})
}

// GetContest handles GET /contests/:id
func GetContest(c *gin.Context) {
	contest, err := services.GetContest(c.Request.Context(), c.Param("id"), middleware.IsAdmin(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := gin.H{"contest": contest}
	if userID := c.GetString("userId"); userID != "" {
		if p, err := services.ParticipantFor(c.Request.Context(), contest.ID, userID); err == nil {
			resp["participantStatus"] = p.Status
		} else {
			resp["participantStatus"] = models.ParticipantStatusNone
		}
	}
	c.JSON(http.StatusOK, resp)
}

// RegisterForContest handles POST /contests/:id/register
func RegisterForContest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p, err := services.Register(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": p})
}

// EnterContest handles POST /contests/:id/enter
func EnterContest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := services.EnterContest(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type ViolationInput struct {
	Kind    models.ViolationKind `json:"kind" binding:"required"`
	Details string               `json:"details"`
}

// RecordViolation handles POST /contests/:id/violations
func RecordViolation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input ViolationInput
	if !bindJSON(c, &input) {
		return
	}
	res, err := services.RecordViolation(c.Request.Context(), c.Param("id"), userID, input.Kind, input.Details)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type FinalizeInput struct {
	// Auto is set by the client countdown when time runs out.
	Auto bool `json:"auto"`
}

// FinalizeContest handles POST /contests/:id/finalize
func FinalizeContest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input FinalizeInput
	if c.Request.ContentLength > 0 && !bindJSON(c, &input) {
		return
	}
	by := models.FinalizedManually
	if input.Auto {
		by = models.FinalizedByTimer
	}

	res, err := services.FinalizeForUser(c.Request.Context(), c.Param("id"), userID, by)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetResults handles GET /contests/:id/results
func GetResults(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := services.GetResults(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetLeaderboard handles GET /contests/:id/leaderboard
func GetLeaderboard(c *gin.Context) {
	board, err := services.GetLeaderboard(c.Request.Context(), c.Param("id"), middleware.IsAdmin(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": board})
}
