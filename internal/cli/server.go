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

	"quiz-game-service/internal/config"
	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
	"quiz-game-service/internal/infra/memory"
	infrapg "quiz-game-service/internal/infra/postgres"
	infraredis "quiz-game-service/internal/infra/redis"
	transport "quiz-game-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game session server",
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
	redisTTL := config.Duration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestionSets())
	if pool != nil {
		loader = infrapg.NewQuestionLoader(pool)
	}

	questionTTL := config.Duration(cfg.Game.QuestionCacheTTL, 10*time.Minute)
	var questions game.QuestionSource
	if redisClient != nil {
		questions = infraredis.NewQuestionCache(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewQuestionCache(loader, questionTTL)
	}

	var registry game.Registry
	var lobbies game.LobbyDirectory
	if redisClient != nil {
		registry = infraredis.NewGameRegistry(redisClient, redisTTL)
		lobbies = infraredis.NewLobbyStore(redisClient, redisTTL)
	} else {
		registry = memory.NewGameRegistry()
		lobbyStore := memory.NewLobbyStore()
		lobbyStore.Save(sampleLobby())
		lobbies = lobbyStore
	}

	var repo game.SessionRepository
	var users game.UserDirectory
	if pool != nil {
		repo = infrapg.NewSessionRepository(pool)
		users = infrapg.NewUserDirectory(pool)
	} else {
		userStore := memory.NewUserStore()
		repo = memory.NewSessionRepository(userStore)
		users = userStore
	}

	defaultSet := cfg.Game.DefaultQuestionSet
	if defaultSet == 0 {
		defaultSet = 1
	}
	hub := transport.NewHub()
	service := game.NewGameService(registry, lobbies, game.NewQuestionPool(questions, defaultSet), repo, users, hub, game.Options{
		QuestionSeconds:  cfg.Game.QuestionSeconds,
		GraceDelay:       config.Duration(cfg.Game.GraceDelay, game.DefaultGraceDelay),
		QuestionsPerGame: cfg.Game.QuestionsPerGame,
	})
	wsHandler := transport.NewWSHandler(service, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting game service on :%s", finalPort)
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

// sampleQuestionSets seeds the no-database mode with a playable set.
func sampleQuestionSets() map[int64][]domain.Question {
	return map[int64][]domain.Question{
		1: {
			{
				ID:            1,
				Text:          "What is 2 + 2?",
				Options:       []string{"3", "4", "5", "22"},
				CorrectAnswer: "4",
				QuestionSetID: 1,
			},
			{
				ID:            2,
				Text:          "Which planet is closest to the sun?",
				Options:       []string{"Venus", "Earth", "Mercury", "Mars"},
				CorrectAnswer: "Mercury",
				QuestionSetID: 1,
				Explanation:   "Mercury orbits at roughly a third of Earth's distance from the sun.",
			},
		},
	}
}

// sampleLobby gives the no-redis mode a joinable lobby.
func sampleLobby() domain.Lobby {
	return domain.Lobby{
		ID:             "lobby-1",
		Code:           "DEMO42",
		HostID:         "p1",
		Language:       "en",
		QuestionSetIDs: []int64{1},
		Players: []domain.LobbyPlayer{
			{ID: "p1", Username: "alice", Character: "wizard", CharacterLevel: 1, IsConnected: true},
			{ID: "p2", Username: "bob", Character: "knight", CharacterLevel: 1, IsConnected: true},
		},
	}
}
