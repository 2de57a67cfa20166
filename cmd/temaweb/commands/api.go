package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/temaweb/internal/api"
	"github.com/wonny/temaweb/internal/api/handlers"
	"github.com/wonny/temaweb/internal/calendar"
	"github.com/wonny/temaweb/internal/crawler"
	"github.com/wonny/temaweb/internal/external/krx"
	"github.com/wonny/temaweb/internal/forward"
	"github.com/wonny/temaweb/internal/insights"
	"github.com/wonny/temaweb/internal/ledger"
	"github.com/wonny/temaweb/internal/refresh"
	"github.com/wonny/temaweb/internal/scheduler"
	"github.com/wonny/temaweb/internal/scheduler/jobs"
	"github.com/wonny/temaweb/internal/theme"
	"github.com/wonny/temaweb/pkg/config"
	"github.com/wonny/temaweb/pkg/httputil"
	"github.com/wonny/temaweb/pkg/logger"
	"github.com/wonny/temaweb/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:     "api",
	Aliases: []string{"serve"},
	Short:   "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 테마 랭킹 / 익일 수익률 / 인사이트 엔드포인트 제공
- 리프레시(재수집) 트리거 제공
- 평일 16:10 자동 수집 스케줄러 시작 (ENABLE_REFRESH=true일 때)

Endpoints:
  GET    /health                      - Health check
  GET    /api/themes                  - 테마 랭킹 + 미리보기
  GET    /api/themes/{rank}           - 테마 상세
  GET    /api/insights/summary        - 핫/상승 테마 보드
  GET    /api/insights/theme-history  - 테마별 일자 이력
  GET    /api/record                  - record.csv 다운로드
  POST   /api/record                  - 기록 추가
  GET    /api/record/json             - 기록 JSON 조회
  DELETE /api/record/{record_id}      - 기록 삭제
  POST   /api/refresh                 - 재수집 트리거
  GET    /api/status                  - 서버/수집 상태
  GET    /api/file/{date}/{filename}  - 원본 CSV 다운로드

Example:
  go run ./cmd/temaweb api
  go run ./cmd/temaweb api --port 8090`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT 환경변수)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== temaweb API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port":      cfg.Port,
		"env":       cfg.Env,
		"tema_root": cfg.Tema.Root,
	}).Info("Initializing API server")

	// 3. Connect to Redis (optional, degrades to no-op when disabled)
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, "temaweb")

	if redisClient.Enabled() {
		log.Info("Connected to Redis")
	} else {
		log.Info("Redis disabled, response cache is a no-op")
	}

	// 4. Create HTTP client and price source
	httpClient := httputil.New(cfg, log)
	krxClient := krx.NewClient(cfg, httpClient, log)

	// 5. Trading-calendar resolver and forward-return joiner
	resolver := calendar.NewResolver(krxClient, cfg.CalendarRefCode, log)
	joiner := forward.NewJoiner(krxClient, cfg.Crawl.Workers, log)

	// 6. Snapshot store, analytics, record ledger
	store := theme.NewStore(cfg.Tema.Root, log)
	analyzer := insights.NewAnalyzer(store, log)
	led := ledger.New(cfg.Tema.RecordPath, resolver, joiner, log)

	// 7. Crawler behind the refresh orchestrator
	crawl := crawler.New(cfg, log)
	orchestrator := refresh.New(crawl, cache, log)

	// 8. Scheduler: 평일 장 마감 후 자동 수집
	sched := scheduler.New(log)
	if cfg.Refresh.Enabled {
		if err := sched.AddJob(jobs.NewSnapshotIngestionJob(orchestrator, log)); err != nil {
			return fmt.Errorf("register ingestion job: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	} else {
		log.Info("Refresh disabled, scheduler not started")
	}

	// 9. Create handlers and router
	router := api.NewRouter(api.Handlers{
		Themes:   handlers.NewThemeHandler(store, resolver, joiner, cache, log),
		Insights: handlers.NewInsightsHandler(analyzer, cache, log),
		Record:   handlers.NewRecordHandler(led, log),
		Refresh:  handlers.NewRefreshHandler(orchestrator, store, cfg, log),
		Files:    handlers.NewFileHandler(store, log),
	}, log)

	// 10. Create server
	server := api.New(cfg, log, router)

	// 11. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
