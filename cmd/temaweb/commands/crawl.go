package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/temaweb/internal/crawler"
	"github.com/wonny/temaweb/pkg/config"
	"github.com/wonny/temaweb/pkg/logger"
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "테마 스냅샷 1회 수집",
	Long: `네이버 금융 테마 목록을 크롤링해서 오늘(KST) 날짜 폴더에
테마별 CSV를 저장합니다.

이 명령어는:
- 테마 목록 페이지 스캔 (CRAWL_PAGES)
- 테마별 편입 종목 수집 (CRAWL_WORKERS 동시 요청)
- 스테이징 폴더에 쓴 뒤 날짜 폴더를 통째로 교체

Example:
  go run ./cmd/temaweb crawl`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	fmt.Println("=== temaweb Crawler ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	c := crawler.New(cfg, log)
	summary, err := c.Run(context.Background())
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	fmt.Printf("\n✅ %s\n", summary)
	return nil
}
