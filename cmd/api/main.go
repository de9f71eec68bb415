package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "reviewtrust/internal/adapters/http_server"
	"reviewtrust/internal/adapters/observability"
	redisad "reviewtrust/internal/adapters/redis"
	"reviewtrust/internal/analysis"
	"reviewtrust/internal/app"
	"reviewtrust/internal/shared"
	mysqlrepo "reviewtrust/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	analyzer := analysis.NewAnalyzer(analysis.DefaultLexicon())
	spam := analysis.NewSpamDetector(analysis.DefaultPromoPhrases(), analysis.DefaultProfanity())
	limiter := app.NewSubmitLimiter(cfg.SubmitPerHour, cfg.SubmitBurst)
	svc := app.NewReviewService(repo, repo, analyzer, spam, cache, limiter, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Svc: svc})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
