package main

import (
	"fmt"
	"log"
	"net/http"

	"gametable/backend/internal/auth"
	"gametable/backend/internal/config"
	"gametable/backend/internal/database"
	"gametable/backend/internal/handler"
	"gametable/backend/internal/notify"
	"gametable/backend/internal/repository"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Game Table API
// @version         1.0
// @description     Sessions, registrations, custom forms and character sheets for tabletop game events.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	notifier := notify.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	defer notifier.Close()

	sessionRepo := repository.NewSessionRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	formRepo := repository.NewFormRepository(db)
	sheetStore := repository.NewSheetStore(db, cfg.UploadDir, cfg.UploadBaseURL)

	userHandler := handler.NewUserHandler(db, cfg.JWTSecret)
	sessionHandler := handler.NewSessionHandler(db, sessionRepo)
	registrationHandler := handler.NewRegistrationHandler(db, sessionRepo, registrationRepo, notifier)
	formHandler := handler.NewFormHandler(db, sessionRepo, formRepo)
	sheetHandler := handler.NewSheetHandler(db, sheetStore)
	adminHandler := handler.NewAdminHandler(db)

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Uploaded character sheets are also reachable directly; download
	// permission checks live on the API route, so this only serves what
	// the handler linked out.
	router.Static(cfg.UploadBaseURL, cfg.UploadDir)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", userHandler.RegisterUser)
			authRoutes.POST("/login", userHandler.LoginUser)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware(cfg.JWTSecret))
		{
			userRoutes.GET("/me", userHandler.GetMe)
		}

		// Session routes; listing and detail are public, everything else
		// requires a token.
		sessionRoutes := apiV1.Group("/sessions")
		{
			sessionRoutes.GET("", sessionHandler.ListSessions)
			sessionRoutes.GET("/:id", sessionHandler.GetSession)
			sessionRoutes.GET("/:id/form", formHandler.GetForm)

			protected := sessionRoutes.Group("")
			protected.Use(auth.AuthMiddleware(cfg.JWTSecret))
			{
				protected.POST("", sessionHandler.CreateSession)
				protected.PUT("/:id", sessionHandler.UpdateSession)
				protected.DELETE("/:id", sessionHandler.DeleteSession)

				protected.POST("/:id/registrations", registrationHandler.Register)
				protected.GET("/:id/registrations", registrationHandler.ListRegistrations)

				protected.PUT("/:id/form", formHandler.SaveForm)
				protected.GET("/:id/responses", formHandler.ListResponses)
				protected.PUT("/:id/registrations/:registrationID/response", formHandler.SaveResponse)
				protected.GET("/:id/registrations/:registrationID/response", formHandler.GetResponse)

				protected.POST("/:id/sheets", sheetHandler.UploadSheet)
				protected.GET("/:id/sheets", sheetHandler.ListSheets)
			}
		}

		// Registration routes (protected)
		registrationRoutes := apiV1.Group("/registrations")
		registrationRoutes.Use(auth.AuthMiddleware(cfg.JWTSecret))
		{
			registrationRoutes.PUT("/:id/status", registrationHandler.UpdateStatus)
			registrationRoutes.PUT("/:id/attendance", registrationHandler.SetAttendance)
			registrationRoutes.DELETE("/:id", registrationHandler.DeleteRegistration)
		}

		// Form defaults
		apiV1.GET("/forms/defaults", formHandler.DefaultFields)

		// Sheet routes (protected)
		sheetRoutes := apiV1.Group("/sheets")
		sheetRoutes.Use(auth.AuthMiddleware(cfg.JWTSecret))
		{
			sheetRoutes.GET("/:id/download", sheetHandler.DownloadSheet)
			sheetRoutes.DELETE("/:id", sheetHandler.DeleteSheet)
		}

		// Admin routes (protected by auth and admin check)
		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(auth.AuthMiddleware(cfg.JWTSecret), auth.AdminMiddleware(db))
		{
			adminRoutes.POST("/repair", adminHandler.RepairSchema)
		}
	}

	fmt.Printf("Server is running on %s\n", cfg.ListenAddr)
	fmt.Println("Swagger UI is available at http://localhost:8080/swagger/index.html")
	log.Fatal(router.Run(cfg.ListenAddr))
}
