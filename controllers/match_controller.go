package controllers

import (
	"encoding/json"
	"net/http"

	"dateblue_server/models"
	"dateblue_server/services"

	"github.com/gorilla/mux"
)

// MatchController struct
type MatchController struct {
	MatchService *services.MatchService
}

// NewMatchController initializes the controller
func NewMatchController(service *services.MatchService) *MatchController {
	return &MatchController{MatchService: service}
}

// HandleGetMatches fetches all matches for a user.
func (c *MatchController) HandleGetMatches(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	matches, err := c.MatchService.GetMatchesByUserID(r.Context(), userID)
	if err != nil {
		http.Error(w, `{"error": "Failed to fetch matches"}`, http.StatusInternalServerError)
		return
	}
	if matches == nil {
		matches = []models.Match{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"matches": matches})
}
