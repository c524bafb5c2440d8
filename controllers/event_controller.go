package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"dateblue_server/services"
)

// EventController receives redelivered events from the host event system.
// Delivery is at least once, so both handlers only re-run logic that is
// idempotent against current stored state.
type EventController struct {
	InteractionService *services.InteractionService
	CleanupService     *services.CleanupService
}

// NewEventController initializes the controller
func NewEventController(interactionService *services.InteractionService, cleanupService *services.CleanupService) *EventController {
	return &EventController{InteractionService: interactionService, CleanupService: cleanupService}
}

// HandleInteractionCreated re-runs match detection for an already-recorded
// interaction. An event whose record no longer exists is a normal early
// exit, not an error.
func (c *EventController) HandleInteractionCreated(w http.ResponseWriter, r *http.Request) {
	var event struct {
		SenderID   string `json:"senderId"`
		ReceiverID string `json:"receiverId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if event.SenderID == "" || event.ReceiverID == "" {
		http.Error(w, `{"error": "senderId and receiverId are required"}`, http.StatusBadRequest)
		return
	}

	interaction, err := c.InteractionService.GetInteraction(r.Context(), event.SenderID, event.ReceiverID)
	if err != nil {
		http.Error(w, `{"error": "Failed to load interaction"}`, http.StatusInternalServerError)
		return
	}
	if interaction == nil {
		log.Printf("Interaction %s -> %s no longer exists, ignoring event", event.SenderID, event.ReceiverID)
	} else {
		c.InteractionService.ProcessInteractionCreated(r.Context(), interaction)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

// HandleUserDeleted (re)starts the deletion cascade for a deleted account.
func (c *EventController) HandleUserDeleted(w http.ResponseWriter, r *http.Request) {
	var event struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if event.UserID == "" {
		http.Error(w, `{"error": "userId is required"}`, http.StatusBadRequest)
		return
	}

	// The cascade is its own unit of work; the checkpoint makes it
	// resumable if this process dies mid-sweep.
	go func(userID string) {
		if err := c.CleanupService.RunCleanup(context.Background(), userID); err != nil {
			log.Printf("Cleanup for %s will be resumed later: %v", userID, err)
		}
	}(event.UserID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}
