package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"hrm-attendance/internal/config"
	"hrm-attendance/internal/handler"
	"hrm-attendance/internal/i18n"
	"hrm-attendance/internal/live"
	"hrm-attendance/internal/mattermost"
	"hrm-attendance/internal/service"
	"hrm-attendance/internal/store"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load(log)
	log.SetLevel(cfg.LogLevel)
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if err := i18n.Init(cfg.DefaultLocale); err != nil {
		log.WithError(err).Fatal("Failed to load locales")
	}
	locales := make([]string, 0, 2)
	for _, tag := range i18n.Locales() {
		locales = append(locales, tag.String())
	}
	log.WithField("locales", locales).WithField("default", cfg.DefaultLocale).Info("Loaded locales")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	db, err := store.NewMongoDB(cfg.MongoURI, cfg.MongoDB, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Close(context.Background())

	// Stores
	attendanceStore, err := store.NewAttendanceStore(ctx, db)
	if err != nil {
		log.WithError(err).Fatal("Failed to prepare attendance collection")
	}
	leaveStore, err := store.NewLeaveStore(ctx, db)
	if err != nil {
		log.WithError(err).Fatal("Failed to prepare leave collection")
	}

	// Services
	attendanceSvc := service.NewAttendanceManager(attendanceStore, service.AttendanceOptions{
		Location:     cfg.Location,
		FullDayHours: cfg.FullDayHours,
		HistoryLimit: cfg.HistoryLimit,
	})
	leaveSvc := service.NewLeaveService(leaveStore, service.SystemClock, cfg.Location)
	reportSvc := service.NewReportService(attendanceStore, leaveStore, cfg.Location)

	// Notifiers
	hub := live.NewHub(log)
	go hub.Run(ctx)
	notifiers := []service.Notifier{hub}
	if cfg.MattermostEnabled() {
		mm := mattermost.NewClient(cfg.MattermostURL, cfg.MattermostToken)
		notifiers = append(notifiers, mattermost.NewAnnouncer(mm, cfg.MattermostChannelID, cfg.Location, cfg.DefaultLocale))
		log.WithField("channel_id", cfg.MattermostChannelID).Info("Mattermost announcements enabled")
	}
	events := service.NewPublisher(log, notifiers...)

	// Routes
	auth := handler.NewAuth(cfg.JWTSecret)
	mux := http.NewServeMux()
	handler.NewAttendanceHandler(attendanceSvc, reportSvc, events, hub, auth).RegisterRoutes(mux)
	handler.NewLeaveHandler(leaveSvc, auth).RegisterRoutes(mux)
	handler.RegisterHealth(mux, db)
	if cfg.EnableAPIDocs {
		handler.RegisterDocs(mux)
	}

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.LoggingMiddleware(log, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":     cfg.Port,
			"env":      cfg.Env,
			"timezone": cfg.Location.String(),
		}).Info("Attendance service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server error")
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Shutdown did not complete cleanly")
	}
}
