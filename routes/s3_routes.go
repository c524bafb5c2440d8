package routes

import (
	"dateblue_server/controllers"
	"dateblue_server/services"

	"github.com/gorilla/mux"
)

// RegisterS3Routes sets up routes for storage operations under /api/s3
func RegisterS3Routes(r *mux.Router, s3Service *services.S3Service) {
	controller := controllers.NewS3Controller(s3Service)

	s3Router := r.PathPrefix("/api/s3").Subrouter()
	s3Router.HandleFunc("/upload-url", controller.HandleGenerateUploadURL).Methods("POST")
	s3Router.HandleFunc("/read-url", controller.HandleGenerateReadURL).Methods("GET")
}
