package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"

	"aparca/internal/api"
	"aparca/internal/auth"
	"aparca/internal/db"
	"aparca/internal/repository"
	"aparca/internal/service"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v78"
)

func main() {
	godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	sqlDB, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	var redisClient *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
	}

	reservationRepo := repository.NewReservationRepository(sqlDB)
	lotRepo := repository.NewLotRepository(sqlDB)
	vehicleRepo := repository.NewVehicleRepository(sqlDB)
	paymentRepo := repository.NewPaymentRepository(sqlDB)
	jobRepo := repository.NewJobRepository(sqlDB)
	lotCache := repository.NewLotCache(redisClient)

	senderSvc := service.NewSenderService(lotRepo)
	reservationSvc := service.NewReservationService(reservationRepo, senderSvc)
	paymentSvc := service.NewPaymentService(paymentRepo, map[string]service.Gateway{
		db.MethodCard: service.CardGateway{},
		db.MethodYape: service.WalletGateway{Provider: "yape"},
		db.MethodPlin: service.WalletGateway{Provider: "plin"},
	})
	lotSvc := service.NewLotService(lotRepo, lotCache)
	vehicleSvc := service.NewVehicleService(vehicleRepo)
	adminAuthSvc := service.NewAdminAuthService()
	jobSvc := service.NewJobService(jobRepo, reservationSvc, paymentSvc)

	reservationHandler := api.NewReservationHandler(reservationSvc)
	paymentHandler := api.NewPaymentHandler(paymentSvc)
	lotHandler := api.NewLotHandler(lotSvc)
	vehicleHandler := api.NewVehicleHandler(vehicleSvc)
	adminHandler := api.NewAdminHandler(lotSvc, reservationSvc, paymentSvc)
	adminAuthHandler := api.NewAdminAuthHandler(adminAuthSvc)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/admin/login", adminAuthHandler.Login).Methods("POST")
	r.HandleFunc("/api/lots", lotHandler.List).Methods("GET")
	r.HandleFunc("/api/lots/{id}", lotHandler.Get).Methods("GET")
	r.HandleFunc("/api/lots/{id}/availability", lotHandler.Availability).Methods("GET")

	// Authenticated endpoints
	user := r.PathPrefix("/api").Subrouter()
	user.Use(auth.Middleware)
	user.HandleFunc("/lots", lotHandler.Create).Methods("POST")
	user.HandleFunc("/vehicles", vehicleHandler.Create).Methods("POST")
	user.HandleFunc("/vehicles", vehicleHandler.List).Methods("GET")
	user.HandleFunc("/vehicles/{id}", vehicleHandler.Delete).Methods("DELETE")
	user.HandleFunc("/reservations", reservationHandler.Create).Methods("POST")
	user.HandleFunc("/reservations", reservationHandler.List).Methods("GET")
	user.HandleFunc("/reservations/{code}", reservationHandler.Get).Methods("GET")
	user.HandleFunc("/reservations/{code}/cancel", reservationHandler.Cancel).Methods("POST")
	user.HandleFunc("/reservations/{code}/extend", reservationHandler.Extend).Methods("POST")
	user.HandleFunc("/reservations/{code}/checkin", reservationHandler.CheckIn).Methods("POST")
	user.HandleFunc("/reservations/{code}/checkout", reservationHandler.CheckOut).Methods("POST")
	user.HandleFunc("/payments", paymentHandler.Create).Methods("POST")
	user.HandleFunc("/payments/pending", paymentHandler.ListPending).Methods("GET")
	user.HandleFunc("/payments/{id}", paymentHandler.Get).Methods("GET")
	user.HandleFunc("/payments/{id}/process", paymentHandler.Process).Methods("POST")
	user.HandleFunc("/payments/{id}/confirm", paymentHandler.ConfirmCash).Methods("POST")
	user.HandleFunc("/payments/{id}/refund", paymentHandler.Refund).Methods("POST")

	// Admin endpoints (protected)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.Middleware, auth.RequireAdmin)
	admin.HandleFunc("/lots/{id}/approve", adminHandler.ApproveLot).Methods("PUT")
	admin.HandleFunc("/lots/{id}", adminHandler.DeleteLot).Methods("DELETE")
	admin.HandleFunc("/reservations", adminHandler.ListReservations).Methods("GET")
	admin.HandleFunc("/payments/stats", adminHandler.PaymentStats).Methods("GET")

	c := cron.New()
	c.AddFunc("@every 1m", jobSvc.FinishElapsedReservations)
	c.AddFunc("@every 5m", jobSvc.RetryPendingWalletPayments)
	c.AddFunc("@daily", jobSvc.PurgeOldCancelled)
	c.Start()
	defer c.Stop()

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handlers.LoggingHandler(os.Stdout, corsHandler)))
}
