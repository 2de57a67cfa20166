package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/temaweb/internal/calendar"
	"github.com/wonny/temaweb/internal/external/krx"
	"github.com/wonny/temaweb/internal/forward"
	"github.com/wonny/temaweb/internal/ledger"
	"github.com/wonny/temaweb/pkg/config"
	"github.com/wonny/temaweb/pkg/httputil"
	"github.com/wonny/temaweb/pkg/logger"
)

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "record.csv 관리",
	Long: `기록 장부(record.csv)를 관리합니다.

Subcommands:
  fix   - 익일 종가/고가가 비어있는 기록을 일괄 보정
  list  - 기록 건수/경로 확인

Example:
  go run ./cmd/temaweb record fix
  go run ./cmd/temaweb record list`,
}

var (
	recordFixCmd = &cobra.Command{
		Use:   "fix",
		Short: "비어있는 익일 수익률 필드 일괄 보정",
		RunE:  runRecordFix,
	}

	recordListCmd = &cobra.Command{
		Use:   "list",
		Short: "기록 건수 확인",
		RunE:  runRecordList,
	}
)

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.AddCommand(recordFixCmd)
	recordCmd.AddCommand(recordListCmd)
}

func initLedger() (*ledger.Ledger, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	httpClient := httputil.New(cfg, log)
	krxClient := krx.NewClient(cfg, httpClient, log)
	resolver := calendar.NewResolver(krxClient, cfg.CalendarRefCode, log)
	joiner := forward.NewJoiner(krxClient, cfg.Crawl.Workers, log)

	return ledger.New(cfg.Tema.RecordPath, resolver, joiner, log), cfg, nil
}

func runRecordFix(cmd *cobra.Command, args []string) error {
	led, cfg, err := initLedger()
	if err != nil {
		return err
	}

	fmt.Printf("Fixing records in %s ...\n", cfg.Tema.RecordPath)

	fixed, err := led.FixAll(context.Background())
	if err != nil {
		return fmt.Errorf("fix records: %w", err)
	}

	fmt.Printf("✅ %d record(s) fixed\n", fixed)
	return nil
}

func runRecordList(cmd *cobra.Command, args []string) error {
	led, cfg, err := initLedger()
	if err != nil {
		return err
	}

	if !led.Exists() {
		fmt.Printf("record.csv not found at %s\n", cfg.Tema.RecordPath)
		return nil
	}

	records, err := led.List(false)
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}

	fmt.Printf("Path:  %s\n", cfg.Tema.RecordPath)
	fmt.Printf("Count: %d\n", len(records))
	return nil
}
