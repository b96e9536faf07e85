package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/services"
)

// GetMyContestHistory handles GET /users/me/contests
func GetMyContestHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	history, err := services.ListParticipations(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
