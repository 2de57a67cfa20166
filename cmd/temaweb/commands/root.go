package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "temaweb",
	Short: "temaweb - 네이버 테마 랭킹 & 익일 수익률 서버",
	Long: `temaweb Unified CLI

테마별 종목 스냅샷을 수집하고, 거래대금 기준 테마 랭킹과
익일 수익률을 제공하는 서버.

Usage:
  go run ./cmd/temaweb [command]

Examples:
  go run ./cmd/temaweb api
  go run ./cmd/temaweb crawl
  go run ./cmd/temaweb record fix
  go run ./cmd/temaweb status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
