package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/auth"
	"quiz-room-service/internal/config"
	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/infra/memory"
	infrapg "quiz-room-service/internal/infra/postgres"
	infraredis "quiz-room-service/internal/infra/redis"
	transport "quiz-room-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	roomTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)
	examTTL := config.TTLDuration(cfg.Exam.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var (
		examStore app.ExamStore
		userStore app.UserStore
		loader    memory.ExamLoader
	)
	if pool != nil {
		pgExams := infrapg.NewExamRepository(pool)
		examStore = pgExams
		loader = pgExams
		userStore = infrapg.NewUserRepository(pool)
	} else {
		memExams := memory.NewExamStoreWith(sampleExams())
		examStore = memExams
		loader = memExams
		userStore = memory.NewUserStore()
	}

	var examRepo app.ExamRepository
	if redisClient != nil {
		examRepo = infraredis.NewExamRepository(redisClient, loader, examTTL)
	} else {
		examRepo = memory.NewExamRepository(loader, examTTL)
	}

	var roomStore app.RoomRepository
	if redisClient != nil {
		roomStore = infraredis.NewRoomStore(redisClient, roomTTL)
	} else {
		roomStore = memory.NewRoomStore()
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = os.Getenv("AUTH_SECRET")
	}
	if secret == "" {
		log.Printf("auth secret not configured, using an insecure default")
		secret = "dev-secret"
	}
	tokens := auth.NewService(secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))

	roomService := app.NewRoomService(roomStore, examRepo)
	examService := app.NewExamService(examRepo, examStore)
	accountService := app.NewAccountService(userStore, tokens)

	api := transport.NewAPIHandler(accountService, examService, roomService, tokens)
	ws := transport.NewWSHandler(roomService, tokens)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(api, ws),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz room service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleExams provides minimal exam content for running without Postgres.
func sampleExams() map[string]domain.Exam {
	return map[string]domain.Exam{
		"exam-1": {
			ID:      "exam-1",
			OwnerID: "demo",
			Title:   "Warmup",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3", Correct: false},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5", Correct: false},
					},
					Points: 1,
				},
			},
		},
	}
}
