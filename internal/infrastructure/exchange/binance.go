package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"github.com/vitos/crypto_liquidation_zones/internal/infrastructure/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	BinanceBaseURL = "https://fapi.binance.com"
	BinanceWSURL   = "wss://fstream.binance.com/ws"

	LiquidationStream = "!forceOrder@arr"

	reconnectDelay = 1 * time.Second
	pongWait       = 5 * time.Minute
	writeWait      = 10 * time.Second
)

type BinanceAdapter struct {
	baseURL string
	wsURL   string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger

	mu             sync.Mutex
	wsConn         *websocket.Conn
	liqCallbacks   []func(domain.Liquidation)
	klineCallbacks []func(domain.KlineTick)
	klines         map[string]string // symbol -> interval
	requestID      int64

	writeMu sync.Mutex
}

func NewBinanceAdapter(baseURL, wsURL string, requestsPerSecond float64, burst int, logger *zap.Logger) *BinanceAdapter {
	if baseURL == "" {
		baseURL = BinanceBaseURL
	}
	if wsURL == "" {
		wsURL = BinanceWSURL
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	if burst <= 0 {
		burst = 10
	}

	st := gobreaker.Settings{
		Name:     "binance-rest",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// cancelled or timed-out callers say nothing about the exchange
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}

	return &BinanceAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		wsURL:   wsURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		breaker: gobreaker.NewCircuitBreaker(st),
		logger:  logger,
		klines:  make(map[string]string),
	}
}

// --- REST API ---

// FetchCandles returns up to limit klines, oldest first.
func (b *BinanceAdapter) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("klines %s %s: %v: %w", symbol, interval, err, domain.ErrTransientNetwork)
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	body, err := b.breaker.Execute(func() (interface{}, error) {
		return b.get(ctx, "/fapi/v1/klines?"+q.Encode())
	})
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %v: %w", symbol, interval, err, domain.ErrTransientNetwork)
	}
	return parseKlines(body.([]byte))
}

func (b *BinanceAdapter) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// parseKlines decodes the positional kline arrays:
// [openTime, open, high, low, close, volume, closeTime, ...]
func parseKlines(body []byte) ([]domain.Candle, error) {
	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	candles := make([]domain.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		values := make([]float64, 6)
		ok := true
		for i := 0; i < 6; i++ {
			v, err := toFloat(k[i])
			if err != nil {
				ok = false
				break
			}
			values[i] = v
		}
		if !ok {
			continue
		}
		candles = append(candles, domain.Candle{
			Time:   int64(values[0]),
			Open:   values[1],
			High:   values[2],
			Low:    values[3],
			Close:  values[4],
			Volume: values[5],
		})
	}
	return candles, nil
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, fmt.Errorf("unexpected kline field %T", v)
	}
}

// --- WebSocket ---

func (b *BinanceAdapter) OnLiquidation(callback func(liq domain.Liquidation)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.liqCallbacks = append(b.liqCallbacks, callback)
}

func (b *BinanceAdapter) OnKline(callback func(tick domain.KlineTick)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.klineCallbacks = append(b.klineCallbacks, callback)
}

func klineStream(symbol, interval string) string {
	return strings.ToLower(symbol) + "@kline_" + interval
}

// SubscribeKline is a no-op when symbol is already streamed at interval.
func (b *BinanceAdapter) SubscribeKline(symbol, interval string) error {
	b.mu.Lock()
	current, ok := b.klines[symbol]
	if ok && current == interval {
		b.mu.Unlock()
		return nil
	}
	b.klines[symbol] = interval
	conn := b.wsConn
	b.mu.Unlock()

	if conn == nil {
		// sent on connect
		return nil
	}
	if ok {
		if err := b.send(conn, "UNSUBSCRIBE", klineStream(symbol, current)); err != nil {
			return err
		}
	}
	return b.send(conn, "SUBSCRIBE", klineStream(symbol, interval))
}

// UnsubscribeKline is a no-op when symbol is not streamed.
func (b *BinanceAdapter) UnsubscribeKline(symbol string) error {
	b.mu.Lock()
	interval, ok := b.klines[symbol]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	delete(b.klines, symbol)
	conn := b.wsConn
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	return b.send(conn, "UNSUBSCRIBE", klineStream(symbol, interval))
}

// Subscriptions returns the kline streams currently requested.
func (b *BinanceAdapter) Subscriptions() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.klines))
	for s, i := range b.klines {
		out[s] = i
	}
	return out
}

type wsRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

func (b *BinanceAdapter) send(conn *websocket.Conn, method string, streams ...string) error {
	b.mu.Lock()
	b.requestID++
	id := b.requestID
	b.mu.Unlock()

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(wsRequest{Method: method, Params: streams, ID: id}); err != nil {
		return fmt.Errorf("ws %s %v: %w", method, streams, err)
	}
	return nil
}

// Run keeps the stream connected until ctx is cancelled, reconnecting after
// every failure with a fixed delay.
func (b *BinanceAdapter) Run(ctx context.Context) error {
	for {
		err := b.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.logger.Warn("WS disconnected, reconnecting", zap.Error(err), zap.Duration("delay", reconnectDelay))
		metrics.WSReconnects.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (b *BinanceAdapter) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", b.wsURL, err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		b.writeMu.Lock()
		defer b.writeMu.Unlock()
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	b.mu.Lock()
	b.wsConn = conn
	streams := []string{LiquidationStream}
	for symbol, interval := range b.klines {
		streams = append(streams, klineStream(symbol, interval))
	}
	b.mu.Unlock()

	defer func() {
		conn.Close()
		b.mu.Lock()
		if b.wsConn == conn {
			b.wsConn = nil
		}
		b.mu.Unlock()
	}()

	if err := b.send(conn, "SUBSCRIBE", streams...); err != nil {
		return err
	}
	b.logger.Info("WS connected", zap.String("url", b.wsURL), zap.Int("streams", len(streams)))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	return b.readLoop(conn)
}

func (b *BinanceAdapter) readLoop(conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ws read: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		b.handleMessage(message)
	}
}

// Binance reuses keys that differ only by case ("e"/"E", "t"/"T", "v"/"V").
// encoding/json matches keys case-insensitively, so every such key needs its
// own field or it lands in its twin.

type wsEnvelope struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
}

type forceOrderEvent struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Order     struct {
		Symbol    string `json:"s"`
		Side      string `json:"S"`
		OrderType string `json:"o"`
		Quantity  string `json:"q"`
		Price     string `json:"p"`
		TradeTime int64  `json:"T"`
	} `json:"o"`
}

type klineEvent struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Kline     struct {
		OpenTime            int64  `json:"t"`
		CloseTime           int64  `json:"T"`
		Interval            string `json:"i"`
		FirstTradeID        int64  `json:"f"`
		LastTradeID         int64  `json:"L"`
		Open                string `json:"o"`
		Close               string `json:"c"`
		High                string `json:"h"`
		Low                 string `json:"l"`
		Volume              string `json:"v"`
		Trades              int64  `json:"n"`
		Closed              bool   `json:"x"`
		QuoteVolume         string `json:"q"`
		TakerBuyVolume      string `json:"V"`
		TakerBuyQuoteVolume string `json:"Q"`
	} `json:"k"`
}

func (b *BinanceAdapter) handleMessage(message []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		b.logger.Debug("WS unmarshal error", zap.Error(err))
		return
	}

	switch env.Event {
	case "forceOrder":
		liq, err := parseForceOrder(message)
		if err != nil {
			b.logger.Warn("Bad forceOrder payload", zap.Error(err))
			return
		}
		b.mu.Lock()
		callbacks := make([]func(domain.Liquidation), len(b.liqCallbacks))
		copy(callbacks, b.liqCallbacks)
		b.mu.Unlock()
		for _, cb := range callbacks {
			cb(liq)
		}
	case "kline":
		tick, err := parseKline(message)
		if err != nil {
			b.logger.Warn("Bad kline payload", zap.Error(err))
			return
		}
		b.mu.Lock()
		callbacks := make([]func(domain.KlineTick), len(b.klineCallbacks))
		copy(callbacks, b.klineCallbacks)
		b.mu.Unlock()
		for _, cb := range callbacks {
			cb(tick)
		}
	}
	// subscription acks ({"result":null,"id":1}) carry no event
}

func parseForceOrder(message []byte) (domain.Liquidation, error) {
	var ev forceOrderEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return domain.Liquidation{}, err
	}
	qty, err := decimal.NewFromString(ev.Order.Quantity)
	if err != nil {
		return domain.Liquidation{}, fmt.Errorf("quantity %q: %w", ev.Order.Quantity, err)
	}
	price, err := decimal.NewFromString(ev.Order.Price)
	if err != nil {
		return domain.Liquidation{}, fmt.Errorf("price %q: %w", ev.Order.Price, err)
	}
	return domain.Liquidation{
		Symbol:    ev.Order.Symbol,
		Side:      domain.LiquidationSide(ev.Order.Side),
		OrderType: ev.Order.OrderType,
		Quantity:  qty,
		Price:     price,
		TradeTime: time.UnixMilli(ev.Order.TradeTime),
	}, nil
}

func parseKline(message []byte) (domain.KlineTick, error) {
	var ev klineEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return domain.KlineTick{}, err
	}
	fields := []string{ev.Kline.Open, ev.Kline.High, ev.Kline.Low, ev.Kline.Close, ev.Kline.Volume}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return domain.KlineTick{}, fmt.Errorf("kline field %q: %w", f, err)
		}
		values[i] = v
	}
	return domain.KlineTick{
		Symbol:    ev.Symbol,
		Interval:  ev.Kline.Interval,
		OpenTime:  ev.Kline.OpenTime,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		Closed:    ev.Kline.Closed,
		EventTime: ev.EventTime,
	}, nil
}
