package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/hackarena-backend/internal/services"
)

type AnswerInput struct {
	OptionIDs []string `json:"optionIds" binding:"required"`
	Seq       int64    `json:"seq"`
}

type CodeInput struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language" binding:"required"`
	Seq      int64  `json:"seq"`
}

// DraftInput allows empty code so clearing the editor is saved too.
type DraftInput struct {
	Code     string `json:"code"`
	Language string `json:"language" binding:"required"`
	Seq      int64  `json:"seq"`
}

type RunCodeInput struct {
	Code        string  `json:"code" binding:"required"`
	Language    string  `json:"language" binding:"required"`
	SampleInput *string `json:"sampleInput"`
}

// participantID resolves the caller's participation in the contest named by
// the :id path parameter.
func participantID(c *gin.Context) (string, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return "", false
	}
	p, err := services.ParticipantFor(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		_ = c.Error(err)
		return "", false
	}
	return p.ID, true
}

// SubmitAnswer handles POST /contests/:id/questions/:questionId/answer
func SubmitAnswer(c *gin.Context) {
	var input AnswerInput
	if !bindJSON(c, &input) {
		return
	}
	pid, ok := participantID(c)
	if !ok {
		return
	}

	ack, err := services.SubmitMCQAnswer(c.Request.Context(), pid, c.Param("questionId"), input.OptionIDs, input.Seq)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ack)
}

// SubmitCode handles POST /contests/:id/questions/:questionId/submit
func SubmitCode(c *gin.Context) {
	var input CodeInput
	if !bindJSON(c, &input) {
		return
	}
	pid, ok := participantID(c)
	if !ok {
		return
	}

	res, err := services.SubmitCode(c.Request.Context(), pid, c.Param("questionId"), input.Code, input.Language, input.Seq)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RunCode handles POST /contests/:id/questions/:questionId/run
func RunCode(c *gin.Context) {
	var input RunCodeInput
	if !bindJSON(c, &input) {
		return
	}
	pid, ok := participantID(c)
	if !ok {
		return
	}

	res, err := services.RunCode(c.Request.Context(), pid, services.RunInput{
		QuestionID:  c.Param("questionId"),
		Code:        input.Code,
		Language:    input.Language,
		SampleInput: input.SampleInput,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SaveDraft handles PUT /contests/:id/questions/:questionId/draft
func SaveDraft(c *gin.Context) {
	var input DraftInput
	if !bindJSON(c, &input) {
		return
	}
	pid, ok := participantID(c)
	if !ok {
		return
	}

	ack, err := services.SaveDraft(c.Request.Context(), pid, c.Param("questionId"), input.Code, input.Language, input.Seq)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ack)
}
