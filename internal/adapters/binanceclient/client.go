package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	candleInterval = "1m"
)

// Client implements ports.PositionSource and ports.CandleStream on Binance
// USD-M futures.
type Client struct {
	futuresClient        *futures.Client
	logger               ports.Logger
	instrument           string
	symbol               string
	reconnectDelay       time.Duration
	maxReconnectAttempts int
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger

	// Symbol is the exchange symbol; positions on it are reported as
	// Instrument so they match the engine's contract name.
	Symbol     string
	Instrument string

	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	futures.UseTestnet = cfg.UseTestnet // selects the WebSocket endpoint
	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{
		"baseURL": client.BaseURL, "symbol": cfg.Symbol, "instrument": cfg.Instrument,
	})

	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = 1 * time.Second
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	return &Client{
		futuresClient:        client,
		logger:               cfg.Logger,
		instrument:           cfg.Instrument,
		symbol:               cfg.Symbol,
		reconnectDelay:       reconnectDelay,
		maxReconnectAttempts: maxAttempts,
	}, nil
}

// classify maps a Binance or transport error onto the ports sentinels.
func classify(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case -1003:
			return ports.ErrRateLimited
		case -1021:
			return ports.ErrTimeout
		case -1022, -2014, -2015:
			return ports.ErrAuthenticationFailed
		case -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1121:
			return ports.ErrInvalidRequest
		default:
			return ports.ErrBrokerUnavailable
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ports.ErrTimeout
	case errors.Is(err, context.Canceled):
		return ports.ErrContextCanceled
	case strings.Contains(err.Error(), "use of closed network connection"),
		strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"):
		return ports.ErrConnectionFailed
	default:
		return ports.ErrBrokerUnavailable
	}
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}
	fields := map[string]interface{}{"operation": operation}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message
	}
	c.logger.Error(ctx, err, operation+" failed", fields)
	return fmt.Errorf("%s failed: %w: %w", operation, classify(err), err)
}

// Ping checks connectivity to the REST API.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, "Ping")
	}
	return nil
}

// GetOpenPositions lists non-zero positions. Binance has one account per key,
// so account is only used for labelling.
func (c *Client) GetOpenPositions(ctx context.Context, account string) ([]domain.BrokerPosition, error) {
	op := "GetOpenPositions"
	svc := c.futuresClient.NewGetPositionRiskService()
	if c.symbol != "" {
		svc = svc.Symbol(c.symbol)
	}
	risks, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	out := make([]domain.BrokerPosition, 0, len(risks))
	for _, r := range risks {
		pos, ok := c.translatePositionRisk(r, account)
		if ok {
			out = append(out, pos)
		}
	}
	c.logger.Debug(ctx, op+" complete", map[string]interface{}{"open": len(out), "rows": len(risks)})
	return out, nil
}

func (c *Client) translatePositionRisk(r *futures.PositionRisk, account string) (domain.BrokerPosition, bool) {
	if r == nil {
		return domain.BrokerPosition{}, false
	}
	amt, err := strconv.ParseFloat(r.PositionAmt, 64)
	if err != nil || amt == 0 {
		return domain.BrokerPosition{}, false
	}
	entry, _ := strconv.ParseFloat(r.EntryPrice, 64)
	symbol := r.Symbol
	if c.instrument != "" && symbol == c.symbol {
		symbol = c.instrument
	}
	return domain.BrokerPosition{
		Account:    account,
		Symbol:     symbol,
		NetSize:    amt,
		EntryPrice: entry,
	}, true
}

// StreamCandles streams closed 1-minute candles for symbol until ctx is done,
// reconnecting with exponential backoff. The returned channel closes when the
// stream stops for good.
func (c *Client) StreamCandles(ctx context.Context, symbol string, handler func(domain.Candle)) (<-chan struct{}, error) {
	op := "StreamCandles"
	if handler == nil {
		return nil, fmt.Errorf("%w: nil candle handler", ports.ErrInvalidRequest)
	}
	if symbol == "" {
		symbol = c.symbol
	}
	fields := map[string]interface{}{"symbol": symbol, "interval": candleInterval}

	onEvent := func(event *futures.WsKlineEvent) {
		candle, final, err := translateWsKline(event, c.instrument)
		if err != nil {
			c.logger.Error(ctx, err, op+": failed to translate kline event", fields)
			return
		}
		if final {
			handler(candle)
		}
	}
	onError := func(err error) {
		c.logger.Warn(ctx, op+": WebSocket error reported", map[string]interface{}{"symbol": symbol, "error": err.Error()})
	}

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		attempt := 0
		for {
			innerDone, innerStop, err := futures.WsKlineServe(symbol, candleInterval, onEvent, onError)
			if err != nil {
				c.handleError(ctx, err, op+" connection attempt")
				attempt++
				if attempt >= c.maxReconnectAttempts {
					c.logger.Error(ctx, err, op+": max reconnection attempts exceeded, giving up", fields)
					return
				}
				delay := c.reconnectDelay * time.Duration(1<<uint(attempt-1))
				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return
				}
			}

			c.logger.Info(ctx, op+": WebSocket connection established", fields)
			attempt = 0
			select {
			case <-innerDone:
				c.logger.Warn(ctx, op+": WebSocket connection closed unexpectedly, reconnecting", fields)
			case <-ctx.Done():
				close(innerStop)
				<-innerDone
				c.logger.Info(ctx, op+": stopped", fields)
				return
			}
		}
	}()
	return doneCh, nil
}

// GetCandlesRange fetches all 1-minute candles between start and end.
func (c *Client) GetCandlesRange(ctx context.Context, symbol string, start, end time.Time) ([]domain.Candle, error) {
	op := "GetCandlesRange"
	const maxLimit = 1500
	var all []domain.Candle
	from := start

	for {
		klines, err := c.futuresClient.NewKlinesService().
			Symbol(symbol).
			Interval(candleInterval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(maxLimit).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, bk := range klines {
			candle, err := translateKline(bk, symbol)
			if err != nil {
				return nil, c.handleError(ctx, fmt.Errorf("%w: %w", ports.ErrDecodeFailed, err), op)
			}
			all = append(all, candle)
		}
		from = time.UnixMilli(klines[len(klines)-1].CloseTime + 1)
		if from.After(end) || len(klines) < maxLimit {
			break
		}
	}
	return all, nil
}

func parseOHLCV(open, high, low, cls, vol string) (o, h, l, c, v float64, err error) {
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{{"open", open, &o}, {"high", high, &h}, {"low", low, &l}, {"close", cls, &c}, {"volume", vol, &v}}
	for _, f := range fields {
		if *f.dst, err = strconv.ParseFloat(f.raw, 64); err != nil {
			return 0, 0, 0, 0, 0, fmt.Errorf("parsing %s '%s': %w", f.name, f.raw, err)
		}
	}
	return o, h, l, c, v, nil
}

func translateWsKline(event *futures.WsKlineEvent, instrument string) (domain.Candle, bool, error) {
	if event == nil {
		return domain.Candle{}, false, errors.New("received nil kline event")
	}
	k := event.Kline
	o, h, l, c, v, err := parseOHLCV(k.Open, k.High, k.Low, k.Close, k.Volume)
	if err != nil {
		return domain.Candle{}, false, err
	}
	symbol := k.Symbol
	if instrument != "" {
		symbol = instrument
	}
	return domain.Candle{
		Timestamp: time.UnixMilli(k.StartTime).UTC(),
		Open:      o,
		High:      h,
		Low:       l,
		Close:     c,
		Volume:    v,
		Symbol:    symbol,
	}, k.IsFinal, nil
}

func translateKline(bk *futures.Kline, symbol string) (domain.Candle, error) {
	if bk == nil {
		return domain.Candle{}, errors.New("received nil historical kline")
	}
	o, h, l, c, v, err := parseOHLCV(bk.Open, bk.High, bk.Low, bk.Close, bk.Volume)
	if err != nil {
		return domain.Candle{}, err
	}
	return domain.Candle{
		Timestamp: time.UnixMilli(bk.OpenTime).UTC(),
		Open:      o,
		High:      h,
		Low:       l,
		Close:     c,
		Volume:    v,
		Symbol:    symbol,
	}, nil
}
