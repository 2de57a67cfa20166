package krx

import (
	"time"

	"github.com/wonny/temaweb/pkg/config"
	"github.com/wonny/temaweb/pkg/httputil"
	"github.com/wonny/temaweb/pkg/logger"
)

// Client fetches daily market bars from KRX (bulk) and the Naver chart API
// (single stock, single day).
// ⭐ SSOT: 일봉 시세 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger

	krxBaseURL   string
	chartBaseURL string
}

// NewClient creates a new market data client
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient:   httpClient,
		logger:       log.WithField("module", "krx"),
		krxBaseURL:   cfg.KRXBaseURL,
		chartBaseURL: cfg.ChartBaseURL,
	}
}

// Bar represents one daily OHLCV bar
type Bar struct {
	TradeDate time.Time
	Open      int64
	High      int64
	Low       int64
	Close     int64
	Volume    int64
}
