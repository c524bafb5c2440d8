package routes

import (
	"dateblue_server/controllers"
	"dateblue_server/services"

	"github.com/gorilla/mux"
)

// RegisterInteractionRoutes sets up routes for interaction-related operations under /api/interactions
func RegisterInteractionRoutes(r *mux.Router, interactionService *services.InteractionService) {
	controller := controllers.NewInteractionController(interactionService)

	interactionRouter := r.PathPrefix("/api/interactions").Subrouter()
	interactionRouter.HandleFunc("/like", controller.HandleLikeUser).Methods("POST")
	interactionRouter.HandleFunc("/pass", controller.HandlePassUser).Methods("POST")
	interactionRouter.HandleFunc("/{userId}", controller.HandleGetUserInteractions).Methods("GET")
}
