package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/qr-attendance/internal/config"
	"github.com/iliyamo/qr-attendance/internal/database"
	"github.com/iliyamo/qr-attendance/internal/handler"
	"github.com/iliyamo/qr-attendance/internal/queue"
	"github.com/iliyamo/qr-attendance/internal/repository"
	"github.com/iliyamo/qr-attendance/internal/router"
	"github.com/iliyamo/qr-attendance/internal/service"
	"github.com/iliyamo/qr-attendance/internal/token"
)

func main() {
	// .env is a dev convenience; in production the variables come from
	// the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, relying on environment")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is absent; limiter and cache degrade
	rlCfg := config.LoadRateLimitConfig()
	ccCfg := config.LoadCacheConfig()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	sessions := repository.NewSessionRepo(db)
	submissions := repository.NewSubmissionRepo(db)
	classes := repository.NewClassRepo(db)

	codec := token.NewCodec([]byte(cfg.QRSecret))
	service.QRTTL = time.Duration(cfg.QRTokenTTLSec) * time.Second
	attendance := service.NewAttendanceService(sessions, submissions, codec, service.PublishAttendanceRecorded)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	sessH := handler.NewSessionHandler(sessions, submissions, attendance)
	sessH.DefaultTTLSec = cfg.SessionTTLSec
	attH := handler.NewAttendanceHandler(attendance)
	expH := handler.NewExportHandler(sessions, submissions)
	clsH := handler.NewClassHandler(classes)

	e := echo.New()
	e.HideBanner = true
	router.RegisterPublic(e, attH, sessH, rlCfg, ccCfg, rdb)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterTeacher(e, sessH, expH, clsH, cfg.JWTSecret)

	go func() {
		if err := queue.StartAttendanceConsumer(); err != nil {
			log.Printf("queue consumer stopped: %v", err)
		}
	}()
	go sweepExpiredSessions(sessions)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// sweepExpiredSessions periodically flags timed-out sessions as
// inactive.  Pure storage hygiene: the usability check already treats
// them as dead, so the sweep interval is not load-bearing.
func sweepExpiredSessions(sessions *repository.SessionRepo) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for range t.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if n, err := sessions.DeactivateExpired(ctx); err != nil {
			log.Printf("session sweep: %v", err)
		} else if n > 0 {
			log.Printf("session sweep: deactivated %d expired sessions", n)
		}
		cancel()
	}
}
