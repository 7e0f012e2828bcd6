package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pipohost/ronza-sub000/config"
	"github.com/pipohost/ronza-sub000/internal/authgate"
	"github.com/pipohost/ronza-sub000/internal/geo"
	room_handler "github.com/pipohost/ronza-sub000/internal/handlers/room-handler"
	"github.com/pipohost/ronza-sub000/internal/notify"
	"github.com/pipohost/ronza-sub000/internal/queue"
	directory_repo "github.com/pipohost/ronza-sub000/internal/repo/directory"
	visitorlog_repo "github.com/pipohost/ronza-sub000/internal/repo/visitorlog"
	"github.com/pipohost/ronza-sub000/internal/routers"
	"github.com/pipohost/ronza-sub000/internal/store"
	identity_service "github.com/pipohost/ronza-sub000/internal/use-case/identity-case"
	moderation_service "github.com/pipohost/ronza-sub000/internal/use-case/moderation-case"
	presence_service "github.com/pipohost/ronza-sub000/internal/use-case/presence-case"
	queue_service "github.com/pipohost/ronza-sub000/internal/use-case/queue-case"
	"github.com/pipohost/ronza-sub000/internal/worker"
	"github.com/pipohost/ronza-sub000/state"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// initialize the application
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appState, err := state.InitAppState(ctx, stop)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application state")
	}
	defer appState.Close()

	roomConf := config.Conf.ROOM
	st := store.New(appState.Redis, roomConf.TxnMaxRetries)
	producer := queue.NewProducer(appState.Redis)

	directoryRepo := directory_repo.NewDirectoryRepo(appState)
	visitorRepo := visitorlog_repo.NewVisitorLogRepo(appState)
	geoResolver := geo.NewHTTPResolver(config.Conf.GEO.BaseURL, time.Duration(config.Conf.GEO.TimeoutMs)*time.Millisecond)

	identitySvc := identity_service.NewIdentityService(directoryRepo)
	presenceSvc := presence_service.NewPresenceService(
		st,
		identitySvc,
		visitorRepo,
		geoResolver,
		producer,
		time.Duration(roomConf.HeartbeatTimeoutSec)*time.Second,
	)
	queueSvc := queue_service.NewQueueService(st, producer, time.Duration(roomConf.MicTimeLimitSec)*time.Second)
	moderationSvc := moderation_service.NewModerationService(st, producer)

	gate := authgate.New(st, appState.JwtSecret.Public, time.Duration(roomConf.AuthRetryDelayMs)*time.Millisecond)

	hub := notify.NewHub()
	log.Info().Msg("Notify hub initialized")

	roomHandler := room_handler.NewRoomHandler(gate, presenceSvc, queueSvc, moderationSvc)
	r := routers.NewRouter(appState, roomHandler, hub)

	workerPool := worker.NewWorkerPool(appState.Redis, 5, queueSvc, hub)
	workerPool.Start(ctx)

	// Sweeper evicts members whose heartbeat went stale.
	go func() {
		ticker := time.NewTicker(time.Duration(roomConf.SweepIntervalSec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				presenceSvc.SweepInactive(ctx)
			}
		}
	}()

	server := &http.Server{
		Addr:         config.Conf.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// serve the application
	go func() {
		log.Info().Msgf("Starting server on http://localhost%s", config.Conf.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(fmt.Sprintf("ListenAndServe failed: %v", err))
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown initiated...")
	// gracefully shutdown the application
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Graceful shutdown failed: %v\n", err)
	} else {
		fmt.Println("Server exited gracefully.")
	}
	workerPool.Wait()
}
