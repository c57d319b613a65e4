package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevinpb-93/employee-tracking-system/internal/config"
	"github.com/kevinpb-93/employee-tracking-system/internal/handlers"
	"github.com/kevinpb-93/employee-tracking-system/internal/middleware"
	"github.com/kevinpb-93/employee-tracking-system/internal/repository"
	"github.com/kevinpb-93/employee-tracking-system/internal/services"
	chatws "github.com/kevinpb-93/employee-tracking-system/internal/websocket"
)

// Dependencies holds the long-lived pieces wired at startup. The cleanup
// service is exposed so the scheduler can reuse the same instance.
type Dependencies struct {
	Cleanup *services.CleanupService
	Hub     *chatws.Hub
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) *Dependencies {
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	var chatStorage, evidenceStorage services.StorageService
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		chatStorage = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseChatBucket, cfg.SupabaseServiceKey)
		evidenceStorage = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseEvidenceBucket, cfg.SupabaseServiceKey)
	}

	chatMediaLimits := services.UploadLimits{
		MaxBytes:     cfg.ChatMediaMaxBytes,
		ContentTypes: services.ChatMediaContentTypes,
	}
	evidenceLimits := services.UploadLimits{
		MaxBytes:     cfg.EvidenceMaxBytes,
		ContentTypes: services.EvidenceContentTypes,
	}

	chatService := services.NewChatService(conversationRepo, messageRepo, userRepo, chatStorage, chatMediaLimits)
	attendanceService := services.NewAttendanceService(attendanceRepo)
	taskService := services.NewTaskService(taskRepo, evidenceStorage, evidenceLimits)
	cleanupService := services.NewCleanupService(
		messageRepo,
		attendanceRepo,
		taskRepo,
		chatStorage,
		cfg.ChatRetentionDays,
		cfg.RecordRetentionDays,
	)

	chatHub := chatws.NewHub()
	go chatHub.Run()

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	userHandler := handlers.NewUserHandler(userRepo)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, cfg.JWTSecret)
	attendanceHandler := handlers.NewAttendanceHandler(attendanceService)
	taskHandler := handlers.NewTaskHandler(taskService)
	reportHandler := handlers.NewReportHandler(userRepo, attendanceService, taskService)
	cleanupHandler := handlers.NewCleanupHandler(cleanupService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	users := authProtected.Group("/users")
	users.Get("", middleware.AdminRequired(), userHandler.ListEmployees)
	users.Post("", middleware.AdminRequired(), userHandler.CreateUser)
	users.Delete("/:id", middleware.AdminRequired(), userHandler.DeleteUser)

	attendance := authProtected.Group("/attendance")
	attendance.Post("/mark", attendanceHandler.MarkTime)
	attendance.Get("/records", attendanceHandler.ListTimeRecords)

	tasks := authProtected.Group("/tasks")
	tasks.Get("", taskHandler.ListTasks)
	tasks.Post("", middleware.AdminRequired(), taskHandler.CreateTask)
	tasks.Put("/:id", middleware.AdminRequired(), taskHandler.UpdateTask)
	tasks.Delete("/:id", middleware.AdminRequired(), taskHandler.DeleteTask)
	tasks.Post("/complete", taskHandler.CompleteTask)
	tasks.Get("/completions", taskHandler.ListCompletions)
	tasks.Post("/evidence", taskHandler.UploadEvidence)
	tasks.Get("/evidence", taskHandler.ListEvidence)
	tasks.Get("/evidence/:id/url", taskHandler.GetEvidenceURL)

	conversations := authProtected.Group("/conversations")
	conversations.Get("", middleware.AdminRequired(), chatHandler.ListConversations)
	conversations.Post("", chatHandler.ResolveConversation)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Post("/:id/messages", chatHandler.SendMessage)
	conversations.Post("/:id/read", chatHandler.MarkRead)

	authProtected.Get("/reports/daily", middleware.AdminRequired(), reportHandler.DailyReport)
	authProtected.Post("/cleanup", middleware.AdminRequired(), cleanupHandler.RunCleanup)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))

	return &Dependencies{
		Cleanup: cleanupService,
		Hub:     chatHub,
	}
}
