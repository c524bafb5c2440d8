package controllers

import (
	"encoding/json"
	"net/http"

	"dateblue_server/services"
)

// S3Controller struct
type S3Controller struct {
	S3Service *services.S3Service
}

// NewS3Controller initializes the controller
func NewS3Controller(service *services.S3Service) *S3Controller {
	return &S3Controller{S3Service: service}
}

// HandleGenerateUploadURL presigns a photo upload into the caller's storage
// namespace.
func (c *S3Controller) HandleGenerateUploadURL(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UserID   string `json:"userId"`
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}
	if request.UserID == "" || request.FileName == "" {
		http.Error(w, `{"error": "userId and fileName are required"}`, http.StatusBadRequest)
		return
	}

	url, key, err := c.S3Service.GenerateUploadURL(r.Context(), request.UserID, request.FileName, request.FileType)
	if err != nil {
		http.Error(w, `{"error": "Failed to generate upload URL"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"uploadUrl": url, "key": key})
}

// HandleGenerateReadURL presigns a read of a stored object.
func (c *S3Controller) HandleGenerateReadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, `{"error": "key is required"}`, http.StatusBadRequest)
		return
	}

	url, err := c.S3Service.GenerateReadURL(r.Context(), key)
	if err != nil {
		http.Error(w, `{"error": "Failed to generate read URL"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"readUrl": url})
}
