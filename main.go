package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"finhealth/backend/database"
	"finhealth/backend/handlers"
	"finhealth/backend/middleware"
	"finhealth/backend/services"

	"github.com/gorilla/mux"
)

func main() {
	// Parse command line flags
	migrateOnly := flag.Bool("migrate-only", false, "Run migrations and exit")
	flag.Parse()

	// Load environment variables before anything touches the database
	services.LoadEnvVariables()

	// Initialize database (runs migrations)
	err := database.InitDB()
	if err != nil {
		log.Fatal(err)
	}

	if *migrateOnly {
		log.Println("Migrations completed successfully. Exiting.")
		return
	}

	// Create router
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.EnableCORS)

	// Register routes with both direct paths and /api prefix to maintain compatibility
	registerRoutes(r)
	apiRouter := r.PathPrefix("/api").Subrouter()
	registerRoutes(apiRouter)

	// Configure the server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Handler:      r,
		Addr:         ":" + port,
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  30 * time.Second,
	}

	// Start the server
	log.Printf("Starting server on port %s...", port)
	log.Fatal(srv.ListenAndServe())
}

// registerRoutes sets up all API routes
func registerRoutes(r *mux.Router) {
	// Public routes (no auth required)
	r.HandleFunc("/health", handlers.HealthCheck).Methods("GET", "OPTIONS")

	// Create a subrouter for authenticated routes
	protectedRouter := r.PathPrefix("").Subrouter()
	protectedRouter.Use(middleware.AuthMiddleware)

	// Upload routes
	protectedRouter.HandleFunc("/uploads", handlers.UploadStatement).Methods("POST")
	protectedRouter.HandleFunc("/uploads", handlers.GetUploads).Methods("GET")
	protectedRouter.HandleFunc("/uploads/{id}", handlers.GetUpload).Methods("GET")

	// Transaction routes
	protectedRouter.HandleFunc("/transactions", handlers.GetTransactions).Methods("GET")
	protectedRouter.HandleFunc("/transactions", handlers.DeleteAllTransactions).Methods("DELETE")
	protectedRouter.HandleFunc("/transactions/{id}", handlers.GetTransaction).Methods("GET")
	protectedRouter.HandleFunc("/transactions/{id}", handlers.DeleteTransaction).Methods("DELETE")
	protectedRouter.HandleFunc("/transactions/{id}/category", handlers.UpdateTransactionCategory).Methods("PUT")
	protectedRouter.HandleFunc("/categories", handlers.GetCategories).Methods("GET")

	// Categorization rule routes
	protectedRouter.HandleFunc("/rules", handlers.GetRules).Methods("GET")
	protectedRouter.HandleFunc("/rules", handlers.CreateRule).Methods("POST")
	protectedRouter.HandleFunc("/rules/apply", handlers.ApplyRules).Methods("POST")
	protectedRouter.HandleFunc("/rules/{id}", handlers.UpdateRule).Methods("PUT")
	protectedRouter.HandleFunc("/rules/{id}", handlers.DeleteRule).Methods("DELETE")

	// Report routes
	protectedRouter.HandleFunc("/reports/summary", handlers.GetSummary).Methods("GET")
	protectedRouter.HandleFunc("/reports/categories", handlers.GetCategoryBreakdown).Methods("GET")
	protectedRouter.HandleFunc("/reports/monthly", handlers.GetMonthlySeries).Methods("GET")
	protectedRouter.HandleFunc("/reports/monthly/{month}", handlers.GetMonthDetails).Methods("GET")
	protectedRouter.HandleFunc("/reports/yoy", handlers.GetYearOverYear).Methods("GET")
}
