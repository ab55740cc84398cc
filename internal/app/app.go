package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cinesync/server/internal/broadcaster"
	"github.com/cinesync/server/internal/controller"
	"github.com/cinesync/server/internal/repository/connection/inmemory"
	"github.com/cinesync/server/internal/repository/room/redis"
	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/pkg/ctxlogger"
	"github.com/cinesync/server/pkg/redisclient"
	"github.com/cinesync/server/pkg/ytvideodata"
)

type AppConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	LogLevel       string        `json:"log_level"`
	MembersLimit   int           `json:"members_limit"`
	PlaylistLimit  int           `json:"playlist_limit"`
	DefaultVolume  int           `json:"default_volume"`
	SendQueueSize  int           `json:"send_queue_size"`
	RoomExpiration time.Duration `json:"room_expiration"`
	RedisHost      string        `json:"redis_host"`
	RedisPort      int           `json:"redis_port"`
	RedisPassword  string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.PlaylistLimit < 1 {
		return fmt.Errorf("playlist limit must be greater than 0")
	}
	if cfg.DefaultVolume < 0 || cfg.DefaultVolume > 100 {
		return fmt.Errorf("default volume must be between 0 and 100")
	}
	if cfg.SendQueueSize < 1 {
		return fmt.Errorf("send queue size must be greater than 0")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	roomRepo := redis.NewRepo(rc, cfg.RoomExpiration)
	connectionRepo := inmemory.NewRepo()
	sender := broadcaster.New(cfg.SendQueueSize, logger)
	roomService := room.NewService(roomRepo, connectionRepo, sender, logger, &room.Config{
		MembersLimit:  cfg.MembersLimit,
		PlaylistLimit: cfg.PlaylistLimit,
		DefaultVolume: cfg.DefaultVolume,
	})
	controller := controller.NewController(roomService, sender, ytvideodata.NewClient(3*time.Second), logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
