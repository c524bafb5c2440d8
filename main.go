package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"dateblue_server/routes"
	"dateblue_server/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	// Initialize DynamoDB client and service
	log.Println("Initializing DynamoDB client...")
	dynamoClient := services.InitializeDynamoDBClient()
	dynamoService := &services.DynamoService{Client: dynamoClient}
	log.Println("DynamoDB client initialized.")

	s3Service := services.NewS3Service()

	// Initialize Services
	userProfileService := &services.UserProfileService{Dynamo: dynamoService}
	matchService := &services.MatchService{Dynamo: dynamoService}
	notificationService := &services.NotificationService{
		Profiles: userProfileService,
		Sender:   services.NewWebPushSenderFromEnv(),
	}
	interactionService := &services.InteractionService{
		Dynamo:   dynamoService,
		Profiles: userProfileService,
		Matches:  matchService,
		Notifier: notificationService,
	}
	cleanupService := &services.CleanupService{
		Dynamo:   dynamoService,
		Profiles: userProfileService,
		Matches:  matchService,
		Storage:  s3Service,
	}

	// Resume deletion cascades a previous process left unfinished.
	cleanupService.StartScheduler(5 * time.Minute)

	// Set up the server port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Using server port: %s\n", port)

	// Initialize the router
	r := mux.NewRouter()

	// Register a welcome route
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to DateBlue")
	}).Methods("GET")

	// Register a health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods("GET")

	// Register routes
	routes.RegisterUserProfileRoutes(r, userProfileService, cleanupService)
	routes.RegisterInteractionRoutes(r, interactionService)
	routes.RegisterEventRoutes(r, interactionService, cleanupService)
	routes.RegisterMatchRoutes(r, matchService)
	routes.RegisterS3Routes(r, s3Service)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Adjust for specific domains if needed
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	// Start the HTTP server
	log.Printf("Starting server on port %s...\n", port)
	log.Fatal(http.ListenAndServe(":"+port, corsHandler))
}
