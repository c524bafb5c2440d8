package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"dateblue_server/models"
	"dateblue_server/services"

	"github.com/gorilla/mux"
)

// InteractionController struct
type InteractionController struct {
	InteractionService *services.InteractionService
}

// NewInteractionController initializes the controller
func NewInteractionController(service *services.InteractionService) *InteractionController {
	return &InteractionController{InteractionService: service}
}

type interactionRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// HandleLikeUser - User likes another user
func (c *InteractionController) HandleLikeUser(w http.ResponseWriter, r *http.Request) {
	c.handleInteraction(w, r, models.ActionLike)
}

// HandlePassUser - User passes on another user. Passes are terminal: no
// mirror update and no notification, the record only prevents re-offering.
func (c *InteractionController) HandlePassUser(w http.ResponseWriter, r *http.Request) {
	c.handleInteraction(w, r, models.ActionPass)
}

func (c *InteractionController) handleInteraction(w http.ResponseWriter, r *http.Request, action string) {
	var request interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if request.SenderID == "" || request.ReceiverID == "" || request.SenderID == request.ReceiverID {
		http.Error(w, `{"error": "senderId and receiverId must be two distinct users"}`, http.StatusBadRequest)
		return
	}

	log.Printf("%s -> %s (%s)", request.SenderID, request.ReceiverID, action)

	interaction, created, err := c.InteractionService.RecordInteraction(r.Context(), request.SenderID, request.ReceiverID, action)
	if err != nil {
		http.Error(w, `{"error": "Failed to record interaction"}`, http.StatusInternalServerError)
		return
	}

	// The trigger runs even for a replayed create: processing is idempotent
	// and a redelivery may be what finishes a half-done transition.
	c.InteractionService.ProcessInteractionCreated(r.Context(), interaction)

	message := "Interaction recorded"
	if !created {
		message = "Interaction already recorded"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success", "message": message})
}

// HandleGetUserInteractions returns the user's own interaction ledger.
func (c *InteractionController) HandleGetUserInteractions(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	interactions, err := c.InteractionService.GetUserInteractions(r.Context(), userID)
	if err != nil {
		http.Error(w, `{"error": "Failed to fetch interactions"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"interactions": interactions})
}
