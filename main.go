// main.go
package main

import (
	"context"
	"fmt"
	"go-travelapp/chapa"
	"go-travelapp/controllers"
	"go-travelapp/payments"
	"go-travelapp/routes"
	"go-travelapp/tasks"
	"go-travelapp/utils"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Proceeding with environment variables.")
	}

	// Set the JWT secret key
	utils.JwtKey = []byte(os.Getenv("JWT_SECRET"))

	// Connect to MongoDB
	client := utils.ConnectDB()
	defer func() {
		if err = client.Disconnect(context.TODO()); err != nil {
			log.Fatal(err)
		}
	}()
	db := client.Database("travelapp")

	// Stores and indexes
	paymentStore := payments.NewMongoPaymentStore(db)
	bookingStore := payments.NewMongoBookingStore(db)
	listingStore := payments.NewMongoListingStore(db)
	if err := paymentStore.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("Failed to create payment indexes: %v", err)
	}

	// Chapa gateway client
	gateway := chapa.NewClient(chapa.Config{
		BaseURL:   os.Getenv("CHAPA_BASE_URL"),
		SecretKey: os.Getenv("CHAPA_SECRET_KEY"),
	})

	// Task queue: SQS in production, in-memory otherwise
	var queue tasks.Queue
	var source tasks.Source
	if queueURL := os.Getenv("SQS_QUEUE_URL"); queueURL != "" {
		sqsQueue, err := tasks.NewSQSQueue(context.Background(), queueURL)
		if err != nil {
			log.Fatalf("Failed to set up SQS queue: %v", err)
		}
		queue, source = sqsQueue, sqsQueue
	} else {
		log.Println("SQS_QUEUE_URL not set, using in-memory task queue")
		memQueue := tasks.NewMemoryQueue(1024)
		queue, source = memQueue, memQueue
	}

	// Notification worker
	worker := tasks.NewWorker(source)
	tasks.NewNotifier(db, utils.NewEmailSender()).Register(worker)
	go worker.Run(context.Background())

	// Payment core
	reconciler := payments.NewReconciler(paymentStore, bookingStore, gateway, queue)
	paymentService := payments.NewService(paymentStore, bookingStore, listingStore, gateway, reconciler, os.Getenv("FRONTEND_URL"))

	// Initialize controllers
	userController := controllers.NewUserController(db)
	listingController := controllers.NewListingController(db)
	bookingController := controllers.NewBookingController(db, queue)
	paymentController := controllers.NewPaymentController(db, paymentService)

	// Set up the router
	router := mux.NewRouter()
	routes.RegisterRoutes(router, userController, listingController, bookingController, paymentController)

	// Start the server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	fmt.Printf("Server is running on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}
