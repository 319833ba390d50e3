package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GreetFM/cache"
	"GreetFM/config"
	"GreetFM/core/audio"
	"GreetFM/core/dispatch"
	"GreetFM/core/greeting"
	"GreetFM/core/ingress"
	"GreetFM/core/session"
	"GreetFM/core/track"
	"GreetFM/db"
	"GreetFM/logger"
	"GreetFM/mqtt"
	"GreetFM/repository"
	"GreetFM/storage"

	"github.com/gorilla/mux"
)

// Start initializes every subsystem and runs the HTTP server until a
// shutdown signal.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	// Storage and data stores.
	if err := storage.InitMinio(cfg); err != nil {
		logger.Warn("minio unavailable, audio archive disabled", logger.ErrorField(err))
	}
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()
	if err := db.InitDB(); err != nil {
		logger.Fatal("failed to initialize database", logger.ErrorField(err))
	}
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("failed to connect GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("redis unavailable, track cache disabled", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
	}

	// Broker.
	broker, err := mqtt.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to mqtt broker", logger.ErrorField(err))
	}
	defer broker.Close()

	// Core wiring.
	hub := session.NewDeviceHub()
	tracker := track.New(cfg.AckTimeout, cfg.TrackRetention)
	trackCache := cache.NewTrackCache(cfg.TrackRetention)
	presence := cache.NewPresence()
	archive := repository.NewMySQLTrackArchive()
	deviceRepo := repository.NewGormDeviceRepository(db.GormDB)

	synth := audio.NewProcessSynthesizer(cfg.SynthPath, cfg.AudioFormat)
	deliverer := audio.NewDeliverer(hub, synth, storage.NewAudioArchive(cfg), trackCache, cfg.AudioFormat, cfg.AudioSampleRate)
	dispatcher := dispatch.NewDispatcher(broker, tracker, hub)
	svc := greeting.NewService(tracker, dispatcher, deliverer, archive, trackCache, cfg.SweepInterval)

	hub.OnDisconnect = func(deviceID string) {
		svc.DeviceDisconnected(deviceID)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := presence.Remove(ctx, deviceID); err != nil {
			logger.Warn("presence remove", logger.ErrorField(err), logger.String("device", deviceID))
		}
	}
	hub.OnSeen = func(deviceID string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := presence.Touch(ctx, deviceID); err != nil {
			logger.Warn("presence touch", logger.ErrorField(err), logger.String("device", deviceID))
		}
	}

	go hub.Run()
	defer hub.Stop()
	svc.Start()
	defer svc.Stop()

	if err := ingress.New(broker, svc).Start(); err != nil {
		logger.Fatal("failed to start event ingress", logger.ErrorField(err))
	}

	apiHandler := NewAPIHandler(svc, deviceRepo, hub, presence, cfg)

	router := mux.NewRouter()

	// CORS middleware.
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	// Control plane.
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/devices", apiHandler.AuthMiddleware(apiHandler.RegisterDeviceHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/devices", apiHandler.AuthMiddleware(apiHandler.ListDevicesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/devices/{device_id}", apiHandler.AuthMiddleware(apiHandler.GetDeviceHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/greetings", apiHandler.AuthMiddleware(apiHandler.TriggerGreetingHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{track_id}", apiHandler.AuthMiddleware(apiHandler.GetTrackHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.ListTracksHandler)).Methods(http.MethodGet)

	// Device data plane.
	router.HandleFunc("/ws/device/{device_id}", apiHandler.DeviceWSHandler)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming WebSocket responses
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("server stopped")
}
