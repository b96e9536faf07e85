package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMyContestHistory(t *testing.T) {
	SetupTestDB(t)
	c := seedContest(t, models.ContestStatusLive)
	require.NoError(t, database.DB.Create(&models.Participant{
		ID:        "p1",
		ContestID: c.ID,
		UserID:    "u1",
		Status:    models.ParticipantStatusSubmitted,
		Score:     70,
	}).Error)

	w := serve(GetMyContestHistory, http.MethodGet, "/users/me/contests", "/users/me/contests", "u1", "USER", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		History []struct {
			Contest struct {
				ID string `json:"id"`
			} `json:"contest"`
			Status string `json:"status"`
			Score  int    `json:"score"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, c.ID, resp.History[0].Contest.ID)
	assert.Equal(t, "SUBMITTED", resp.History[0].Status)
	assert.Equal(t, 70, resp.History[0].Score)

	w = serve(GetMyContestHistory, http.MethodGet, "/users/me/contests", "/users/me/contests", "u2", "USER", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"history":[]}`, w.Body.String())

	w = serve(GetMyContestHistory, http.MethodGet, "/users/me/contests", "/users/me/contests", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
