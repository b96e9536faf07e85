package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/services"
)

// AdminCreateContest handles POST /admin/contests
func AdminCreateContest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input services.CreateContestInput
	if !bindJSON(c, &input) {
		return
	}

	contest, err := services.CreateContest(c.Request.Context(), input, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contest": contest})
}

// AdminAddQuestion handles POST /admin/contests/:id/questions
func AdminAddQuestion(c *gin.Context) {
	var input services.QuestionInput
	if !bindJSON(c, &input) {
		return
	}

	q, err := services.AddQuestion(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question": q})
}

type PublishInput struct {
	OpenNow bool `json:"openNow"`
}

// AdminPublishContest handles POST /admin/contests/:id/publish
func AdminPublishContest(c *gin.Context) {
	var input PublishInput
	if c.Request.ContentLength > 0 && !bindJSON(c, &input) {
		return
	}

	contest, err := services.PublishContest(c.Request.Context(), c.Param("id"), input.OpenNow)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contest": contest})
}
