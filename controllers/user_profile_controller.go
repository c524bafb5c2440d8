package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"dateblue_server/models"
	"dateblue_server/services"

	"github.com/gorilla/mux"
)

// UserProfileController struct
type UserProfileController struct {
	UserProfileService *services.UserProfileService
	CleanupService     *services.CleanupService
}

// NewUserProfileController initializes the controller
func NewUserProfileController(profileService *services.UserProfileService, cleanupService *services.CleanupService) *UserProfileController {
	return &UserProfileController{UserProfileService: profileService, CleanupService: cleanupService}
}

// HandleCreateProfile stores a new profile.
func (c *UserProfileController) HandleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var profile models.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if profile.UserID == "" {
		http.Error(w, `{"error": "userId is required"}`, http.StatusBadRequest)
		return
	}

	if err := c.UserProfileService.CreateProfile(r.Context(), profile); err != nil {
		http.Error(w, `{"error": "Failed to create profile"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"status": "success", "message": "Profile created"})
}

// HandleGetProfile fetches a profile by id.
func (c *UserProfileController) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	profile, err := c.UserProfileService.GetProfile(r.Context(), userID)
	if err != nil {
		http.Error(w, `{"error": "Failed to fetch profile"}`, http.StatusInternalServerError)
		return
	}
	if profile == nil {
		http.Error(w, `{"error": "Profile not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// HandleGetReceivedLikes returns the user's receivedLikes mirror, ordered by
// like time.
func (c *UserProfileController) HandleGetReceivedLikes(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	likes, err := c.UserProfileService.ListReceivedLikes(r.Context(), userID)
	if err != nil {
		http.Error(w, `{"error": "Failed to fetch received likes"}`, http.StatusInternalServerError)
		return
	}
	if likes == nil {
		likes = []models.ReceivedLike{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"receivedLikes": likes})
}

// HandleSavePushSubscription stores the caller's push delivery address.
func (c *UserProfileController) HandleSavePushSubscription(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var request struct {
		Subscription json.RawMessage `json:"subscription"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || len(request.Subscription) == 0 {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := c.UserProfileService.SavePushSubscription(r.Context(), userID, string(request.Subscription)); err != nil {
		http.Error(w, `{"error": "Failed to save push subscription"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success", "message": "Push subscription saved"})
}

// HandleDeleteProfile deletes the user document and starts the deletion
// cascade. The delete itself is the trigger; the cascade runs as its own
// unit of work and is resumable if this process dies.
func (c *UserProfileController) HandleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	if err := c.UserProfileService.DeleteProfile(r.Context(), userID); err != nil {
		http.Error(w, `{"error": "Failed to delete profile"}`, http.StatusInternalServerError)
		return
	}

	if err := c.CleanupService.EnqueueCleanup(r.Context(), userID); err != nil {
		// The cascade still runs below; without a checkpoint it just cannot
		// resume mid-sweep if interrupted.
		log.Printf("Failed to persist cleanup checkpoint for %s: %v", userID, err)
	}

	go func(userID string) {
		if err := c.CleanupService.RunCleanup(context.Background(), userID); err != nil {
			log.Printf("Cleanup for %s will be resumed later: %v", userID, err)
		}
	}(userID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "success", "message": "Profile deleted, cleanup started"})
}
