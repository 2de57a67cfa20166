package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/temaweb/internal/theme"
	"github.com/wonny/temaweb/pkg/config"
	"github.com/wonny/temaweb/pkg/logger"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "스냅샷 현황 확인",
	Long: `TEMA_ROOT 아래의 날짜 폴더와 테마 파일 현황을 출력합니다.

Example:
  go run ./cmd/temaweb status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	store := theme.NewStore(cfg.Tema.Root, log)
	dates := store.Dates()

	fmt.Printf("TEMA_ROOT: %s\n", store.Root())
	fmt.Printf("Days:      %d\n", len(dates))

	if len(dates) == 0 {
		fmt.Println("\nNo snapshot directories yet. Run: go run ./cmd/temaweb crawl")
		return nil
	}

	latest := dates[len(dates)-1]
	fmt.Printf("Latest:    %s\n\n", latest)

	// 최근 5일만 보여준다
	start := 0
	if len(dates) > 5 {
		start = len(dates) - 5
	}
	for _, day := range dates[start:] {
		files := store.ThemeFiles(day)
		fmt.Printf("  %s  %d themes\n", day, len(files))
	}

	return nil
}
