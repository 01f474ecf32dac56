package main

import (
	"context"
	"fmt"
	"log/slog"

	httpapi "github.com/immxrtalbeast/debatehall/internal/api/http"
	"github.com/immxrtalbeast/debatehall/internal/auth"
	"github.com/immxrtalbeast/debatehall/internal/cache"
	"github.com/immxrtalbeast/debatehall/internal/config"
	"github.com/immxrtalbeast/debatehall/internal/realtime"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/immxrtalbeast/debatehall/internal/scheduler"
	"github.com/immxrtalbeast/debatehall/internal/service"
	"github.com/immxrtalbeast/debatehall/lib/logger/sl"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type app struct {
	cfg         *config.Config
	log         *slog.Logger
	auth        *auth.Service
	hub         *realtime.Hub
	sessions    *service.SessionService
	scheduler   *scheduler.Scheduler
	controllers httpapi.Controllers

	closers []func() error
}

func settingsFrom(cfg *config.Config) service.Settings {
	return service.Settings{
		JoiningWindow:    cfg.Session.JoiningWindow,
		VotingWindow:     cfg.Session.VotingWindow,
		MaxPerSide:       cfg.Session.MaxPerSide,
		ManualStart:      cfg.Session.ManualStart,
		AutoMuteWarnings: cfg.Moderation.AutoMuteWarnings,
		HistorySize:      cfg.Session.HistorySize,
	}
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	db, err := connectDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if err := migrate(db); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	presence, err := a.presenceCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.wire(db, presence)
	return a, nil
}

func (a *app) presenceCache(ctx context.Context) (service.PresenceCache, error) {
	rc := a.cfg.Redis
	if rc.Addr == "" {
		a.log.Info("redis address is empty, using in-process presence cache")
		return cache.NewMemoryPresenceCache(a.cfg.Session.PresenceTTL), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	presence := cache.NewRedisPresenceCache(client, a.cfg.Session.PresenceTTL)
	if err := presence.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	return presence, nil
}

func (a *app) wire(db *gorm.DB, presenceCache service.PresenceCache) {
	cfg, log := a.cfg, a.log
	settings := settingsFrom(cfg)

	repos := repository.NewPostgresRepositories(db)
	locks := service.NewSessionLocks()
	a.hub = realtime.NewHub(log)
	a.auth = auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	users := service.NewUserService(repos.Users, log)
	topics := service.NewTopicService(repos.Topics, repos.Users, log)
	notifications := service.NewNotificationService(repos.Notifications, a.hub, log)
	presence := service.NewPresenceService(presenceCache, repos, a.hub, log)
	a.sessions = service.NewSessionService(repos, locks, notifications, a.hub, settings, log)
	moderation := service.NewModerationService(repos, locks, presence, notifications, a.hub, settings, log)
	voting := service.NewVotingService(repos, locks, a.hub, log)
	chat := service.NewChatService(repos, locks, a.hub, log)
	reports := service.NewReportService(repos, log)

	a.scheduler = scheduler.New(a.sessions, cfg.Scheduler.Interval, cfg.Scheduler.Workers, log)

	a.controllers = httpapi.Controllers{
		Users:         httpapi.NewUserController(users, log),
		Topics:        httpapi.NewTopicController(topics, log),
		Sessions:      httpapi.NewSessionController(a.sessions, presence, log),
		Moderation:    httpapi.NewModerationController(moderation, log),
		Votes:         httpapi.NewVoteController(voting, log),
		Notifications: httpapi.NewNotificationController(notifications, log),
		Reports:       httpapi.NewReportController(reports, log),
		Sockets: httpapi.NewSocketController(httpapi.SocketConfig{
			AllowOrigins:  cfg.HTTP.AllowOrigins,
			TypingTimeout: cfg.Session.TypingTimeout,
		}, a.auth, a.sessions, presence, chat, notifications, a.hub, log),
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("failed to release resource", sl.Err(err))
		}
	}
}
