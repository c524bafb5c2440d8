package routes

import (
	"dateblue_server/controllers"
	"dateblue_server/services"

	"github.com/gorilla/mux"
)

// RegisterUserProfileRoutes sets up routes for profile operations under /api/profiles
func RegisterUserProfileRoutes(r *mux.Router, profileService *services.UserProfileService, cleanupService *services.CleanupService) {
	controller := controllers.NewUserProfileController(profileService, cleanupService)

	profileRouter := r.PathPrefix("/api/profiles").Subrouter()
	profileRouter.HandleFunc("", controller.HandleCreateProfile).Methods("POST")
	profileRouter.HandleFunc("/{userId}", controller.HandleGetProfile).Methods("GET")
	profileRouter.HandleFunc("/{userId}", controller.HandleDeleteProfile).Methods("DELETE")
	profileRouter.HandleFunc("/{userId}/received-likes", controller.HandleGetReceivedLikes).Methods("GET")
	profileRouter.HandleFunc("/{userId}/push-subscription", controller.HandleSavePushSubscription).Methods("PUT")
}
