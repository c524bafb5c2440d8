package routes

import (
	"dateblue_server/controllers"
	"dateblue_server/services"

	"github.com/gorilla/mux"
)

// RegisterEventRoutes sets up the redelivery endpoints for the host event system under /api/events
func RegisterEventRoutes(r *mux.Router, interactionService *services.InteractionService, cleanupService *services.CleanupService) {
	controller := controllers.NewEventController(interactionService, cleanupService)

	eventRouter := r.PathPrefix("/api/events").Subrouter()
	eventRouter.HandleFunc("/interaction-created", controller.HandleInteractionCreated).Methods("POST")
	eventRouter.HandleFunc("/user-deleted", controller.HandleUserDeleted).Methods("POST")
}
