package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"reviewtrust/internal/adapters/observability"
	"reviewtrust/internal/analysis"
	"reviewtrust/internal/domain"
	"reviewtrust/internal/shared"
	mysqlrepo "reviewtrust/internal/storage/mysql"
)

// reanalyzer re-scores every persisted review with the current lexicons.
// It touches sentiment fields only; moderation state is never changed by a
// backfill.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)
	log.Info().
		Int("workers", cfg.ReanalyzeWorkers).
		Int("batch", cfg.ReanalyzeBatch).
		Msg("reanalyzer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}

	repo := mysqlrepo.New(db)
	analyzer := analysis.NewAnalyzer(analysis.DefaultLexicon())
	spam := analysis.NewSpamDetector(analysis.DefaultPromoPhrases(), analysis.DefaultProfanity())

	sem := semaphore.NewWeighted(int64(cfg.ReanalyzeWorkers))
	var wg sync.WaitGroup
	var done, failed int64

	for offset := 0; ; offset += cfg.ReanalyzeBatch {
		page, err := repo.List(ctx, domain.PageQuery{Limit: cfg.ReanalyzeBatch, Offset: offset})
		if err != nil {
			log.Fatal().Err(err).Msg("list reviews failed")
		}
		if len(page) == 0 {
			break
		}

		for _, rv := range page {
			rv := rv

			// acquire before launching the goroutine; release inside it
			if err := sem.Acquire(ctx, 1); err != nil {
				log.Fatal().Err(err).Msg("semaphore acquire failed")
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)

				res := analysis.Analyze(analyzer, spam, rv.Title+" "+rv.Text, time.Now().UTC())
				s := domain.Sentiment{
					Score:      res.Sentiment.Score,
					Label:      res.Sentiment.Label,
					Keywords:   mapKeywords(res.Keywords),
					SpamScore:  res.Spam.SpamScore,
					AnalyzedAt: res.AnalyzedAt,
				}
				if err := repo.UpdateSentiment(ctx, rv.ID, s); err != nil {
					atomic.AddInt64(&failed, 1)
					log.Warn().Str("id", rv.ID).Err(err).Msg("reanalyze failed")
					return
				}
				atomic.AddInt64(&done, 1)
			}()
		}
	}

	wg.Wait()
	log.Info().
		Int64("reanalyzed", atomic.LoadInt64(&done)).
		Int64("failed", atomic.LoadInt64(&failed)).
		Msg("reanalysis completed")
}

func mapKeywords(in []analysis.Keyword) []domain.Keyword {
	out := make([]domain.Keyword, len(in))
	for i, k := range in {
		out[i] = domain.Keyword{Word: k.Word, Sentiment: k.Sentiment, Frequency: k.Frequency, Type: k.Type}
	}
	return out
}
