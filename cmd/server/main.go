package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forumcore/internal/cache"
	"forumcore/internal/config"
	"forumcore/internal/db"
	"forumcore/internal/logger"
	"forumcore/internal/middleware"
	"forumcore/internal/router"
	"forumcore/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	tokenTTL      = 7 * 24 * time.Hour
	localCacheLen = 10000
	feedCacheLen  = 256
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Debug)

	// Initialize Database
	conn, err := db.Init(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}

	dupCache, closeCache := duplicateCache(cfg, log)
	defer closeCache()

	var feedPages *cache.LRU
	if cfg.FeedCacheTTL > 0 {
		if feedPages, err = cache.NewLRU(feedCacheLen); err != nil {
			log.Fatal().Err(err).Msg("feed cache init failed")
		}
	}

	votes := services.NewVoteService(conn, log.With().Str("component", "votes").Logger())
	feed := services.NewFeedService(conn, votes, feedPages, cfg.FeedCacheTTL, log.With().Str("component", "feed").Logger())
	reconciler := services.NewReconciler(conn, votes, cfg.ReconcileInterval, log.With().Str("component", "reconcile").Logger())
	deps := router.Deps{
		DB:         conn,
		Tokens:     middleware.NewTokens(cfg.JWTSecret, tokenTTL),
		Votes:      votes,
		Reports:    services.NewReportService(conn, dupCache, cfg.ReportWindow, log.With().Str("component", "reports").Logger()),
		Feed:       feed,
		Posts:      services.NewPostService(conn, feed, log.With().Str("component", "posts").Logger()),
		Comments:   services.NewCommentService(conn, log.With().Str("component", "comments").Logger()),
		Topics:     services.NewTopicService(conn),
		Reconciler: reconciler,
		Log:        log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 后台对账
	go reconciler.Run(ctx)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	// Setup Sessions
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", MaxAge: int(tokenTTL.Seconds()), HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("forum_session", store))

	router.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("forum server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// duplicateCache 配了 REDIS_URL 用 Redis（多实例共享），否则用进程内 LRU。
// Redis 暂时连不上也照常启动，举报去重会退回数据库查询。
func duplicateCache(cfg config.Config, log zerolog.Logger) (cache.Store, func()) {
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, duplicate reports will be checked against the database only")
		} else {
			log.Info().Msg("using redis duplicate cache")
		}
		return rdb, func() { rdb.Close() }
	}

	l, err := cache.NewLRU(localCacheLen)
	if err != nil {
		log.Fatal().Err(err).Msg("local cache init failed")
	}
	log.Info().Msg("REDIS_URL not set, using in-process duplicate cache")
	return l, func() {}
}
