package routes

import (
	"dateblue_server/controllers"
	"dateblue_server/services"

	"github.com/gorilla/mux"
)

// RegisterMatchRoutes sets up routes for match operations under /api/matches
func RegisterMatchRoutes(r *mux.Router, matchService *services.MatchService) {
	controller := controllers.NewMatchController(matchService)

	matchRouter := r.PathPrefix("/api/matches").Subrouter()
	matchRouter.HandleFunc("/{userId}", controller.HandleGetMatches).Methods("GET")
}
