package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-bot/business/blockchain/app"
	"github.com/fd1az/dex-arbitrage-bot/business/blockchain/domain"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
	"github.com/fd1az/dex-arbitrage-bot/internal/config"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

var errSubscriberClosed = errors.New("subscriber is closed")

// SubscriberConfig holds configuration for the block subscriber.
type SubscriberConfig struct {
	WSURL          string        // optional websocket endpoint for pushed heads
	PollInterval   time.Duration // HTTP polling interval
	InitialBackoff time.Duration // first websocket reconnect delay
	MaxBackoff     time.Duration // reconnect delay ceiling
	BufferSize     int           // block channel buffer size
}

// SubscriberConfigFrom derives subscriber settings from the chain config.
func SubscriberConfigFrom(cfg config.ChainConfig) SubscriberConfig {
	return SubscriberConfig{
		WSURL:          cfg.WebSocketURL,
		PollInterval:   cfg.PollInterval,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		BufferSize:     16,
	}
}

// headSource pushes new heads. *ethclient.Client satisfies it.
type headSource interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	Close()
}

type subscriberMetrics struct {
	blocksReceived  metric.Int64Counter
	subscribeErrors metric.Int64Counter
	connectionState metric.Int64Gauge
	blockLatency    metric.Float64Histogram
	reconnects      metric.Int64Counter
}

// Subscriber implements BlockSubscriber. Heads arrive over a websocket when
// one is configured; while it is down, and always when it is not, the shared
// HTTP client is polled instead. Websocket reconnects back off exponentially.
type Subscriber struct {
	config SubscriberConfig
	logger logger.LoggerInterface
	http   app.ChainClient
	dial   func(ctx context.Context, url string) (headSource, error)

	wsClient headSource
	clientMu sync.RWMutex

	state      domain.ConnectionState
	stateMu    sync.RWMutex
	polling    atomic.Bool
	lastBlock  atomic.Uint64
	reconnects atomic.Int32

	done      chan struct{}
	closeOnce sync.Once

	tracer  trace.Tracer
	metrics *subscriberMetrics
}

// NewSubscriber creates a block subscriber polling through http.
func NewSubscriber(cfg SubscriberConfig, http app.ChainClient, log logger.LoggerInterface) (*Subscriber, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}

	s := &Subscriber{
		config: cfg,
		logger: log,
		http:   http,
		dial: func(ctx context.Context, url string) (headSource, error) {
			return ethclient.DialContext(ctx, url)
		},
		state:  domain.StateDisconnected,
		done:   make(chan struct{}),
		tracer: otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &subscriberMetrics{}

	s.metrics.blocksReceived, err = meter.Int64Counter(
		"chain_blocks_received_total",
		metric.WithDescription("Total Polygon blocks received"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	s.metrics.subscribeErrors, err = meter.Int64Counter(
		"chain_subscribe_errors_total",
		metric.WithDescription("Total head subscription and polling errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	s.metrics.connectionState, err = meter.Int64Gauge(
		"chain_connection_state",
		metric.WithDescription("Polygon connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	s.metrics.blockLatency, err = meter.Float64Histogram(
		"chain_block_latency_ms",
		metric.WithDescription("Latency from block timestamp to receipt"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	s.metrics.reconnects, err = meter.Int64Counter(
		"chain_ws_reconnects_total",
		metric.WithDescription("Websocket reconnect attempts"),
		metric.WithUnit("{reconnect}"),
	)
	return err
}

// Subscribe starts listening for new blocks. The returned channel is closed
// when ctx is done or the subscriber is closed.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	_, span := s.tracer.Start(ctx, "chain.subscribe",
		trace.WithAttributes(attribute.Bool("websocket", s.config.WSURL != "")),
	)
	defer span.End()

	select {
	case <-s.done:
		span.RecordError(errSubscriberClosed)
		return nil, apperror.New(apperror.CodeChainConnectionFailed,
			apperror.WithCause(errSubscriberClosed))
	default:
	}

	s.setState(domain.StateConnecting)

	out := make(chan *domain.Block, s.config.BufferSize)
	go s.run(ctx, out)

	span.SetStatus(codes.Ok, "subscribed")
	return out, nil
}

func (s *Subscriber) run(ctx context.Context, out chan<- *domain.Block) {
	defer close(out)
	defer s.setState(domain.StateDisconnected)

	backoff := s.config.InitialBackoff

	for {
		if s.config.WSURL == "" {
			s.pollFor(ctx, out, 0)
			return
		}

		subscribed, err := s.streamWS(ctx, out)
		if s.stopping(ctx) {
			return
		}
		if subscribed {
			backoff = s.config.InitialBackoff
		}

		s.reconnects.Add(1)
		s.metrics.reconnects.Add(ctx, 1)
		s.setState(domain.StateReconnecting)
		s.logger.Warn(ctx, "websocket heads unavailable, polling http",
			"error", err, "retry_in", backoff)

		if !s.pollFor(ctx, out, backoff) {
			return
		}
		backoff = min(backoff*2, s.config.MaxBackoff)
	}
}

// streamWS forwards pushed heads until the subscription fails. subscribed
// reports whether a subscription was established at all.
func (s *Subscriber) streamWS(ctx context.Context, out chan<- *domain.Block) (subscribed bool, err error) {
	client, err := s.dial(ctx, s.config.WSURL)
	if err != nil {
		s.metrics.subscribeErrors.Add(ctx, 1)
		return false, fmt.Errorf("dial ws: %w", err)
	}

	s.clientMu.Lock()
	s.wsClient = client
	s.clientMu.Unlock()

	defer func() {
		s.clientMu.Lock()
		s.wsClient = nil
		s.clientMu.Unlock()
		client.Close()
	}()

	headers := make(chan *types.Header, s.config.BufferSize)
	sub, err := client.SubscribeNewHead(ctx, headers)
	if err != nil {
		s.metrics.subscribeErrors.Add(ctx, 1)
		return false, fmt.Errorf("subscribe new heads: %w", err)
	}
	defer sub.Unsubscribe()

	s.polling.Store(false)
	s.setState(domain.StateConnected)
	s.logger.Info(ctx, "subscribed to new heads via websocket")

	for {
		select {
		case <-s.done:
			return true, errSubscriberClosed
		case <-ctx.Done():
			return true, ctx.Err()
		case err := <-sub.Err():
			s.metrics.subscribeErrors.Add(ctx, 1)
			if err == nil {
				err = errors.New("subscription ended")
			}
			return true, err
		case header := <-headers:
			if header != nil {
				s.emit(ctx, out, header, false)
			}
		}
	}
}

// pollFor polls the HTTP client for d, or until stopped when d is zero. It
// returns false once the subscriber should stop.
func (s *Subscriber) pollFor(ctx context.Context, out chan<- *domain.Block, d time.Duration) bool {
	s.polling.Store(true)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		deadline = timer.C
	}

	s.pollLatestBlock(ctx, out)

	for {
		select {
		case <-s.done:
			return false
		case <-ctx.Done():
			return false
		case <-deadline:
			return true
		case <-ticker.C:
			s.pollLatestBlock(ctx, out)
		}
	}
}

func (s *Subscriber) pollLatestBlock(ctx context.Context, out chan<- *domain.Block) {
	ctx, span := s.tracer.Start(ctx, "chain.poll.block")
	defer span.End()

	header, err := s.http.HeaderByNumber(ctx, nil)
	if err != nil {
		if s.stopping(ctx) {
			return
		}
		span.RecordError(err)
		s.metrics.subscribeErrors.Add(ctx, 1)
		s.setState(domain.StateReconnecting)
		s.logger.Warn(ctx, "http poll failed", "error", err)
		return
	}

	if s.State() != domain.StateConnected {
		s.setState(domain.StateConnected)
	}
	s.emit(ctx, out, header, true)
	span.SetStatus(codes.Ok, "polled")
}

// emit converts a header and forwards it unless it is not newer than the
// last one seen. A full buffer drops the block.
func (s *Subscriber) emit(ctx context.Context, out chan<- *domain.Block, header *types.Header, fromHTTP bool) {
	if header.Number == nil || header.Number.Uint64() <= s.lastBlock.Load() {
		return
	}

	block := headerToBlock(header)
	s.lastBlock.Store(block.Number)

	latency := time.Since(block.Timestamp)
	s.metrics.blockLatency.Record(ctx, float64(latency.Milliseconds()),
		metric.WithAttributes(attribute.Bool("from_http", fromHTTP)))

	select {
	case out <- block:
		s.metrics.blocksReceived.Add(ctx, 1)
		s.logger.Debug(ctx, "block received",
			"number", block.Number,
			"from_http", fromHTTP,
			"latency_ms", latency.Milliseconds())
	default:
		s.logger.Warn(ctx, "block dropped, buffer full", "number", block.Number)
	}
}

func headerToBlock(header *types.Header) *domain.Block {
	return &domain.Block{
		Number:     header.Number.Uint64(),
		Hash:       header.Hash(),
		ParentHash: header.ParentHash,
		Timestamp:  time.Unix(int64(header.Time), 0),
		GasLimit:   header.GasLimit,
		GasUsed:    header.GasUsed,
		BaseFee:    header.BaseFee,
	}
}

func (s *Subscriber) stopping(ctx context.Context) bool {
	select {
	case <-s.done:
		return true
	default:
		return ctx.Err() != nil
	}
}

// LatestBlock retrieves the most recent block.
func (s *Subscriber) LatestBlock(ctx context.Context) (*domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "chain.latest_block")
	defer span.End()

	header, err := s.http.HeaderByNumber(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "fetched")
	return headerToBlock(header), nil
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Status returns detailed connection status.
func (s *Subscriber) Status() domain.ConnectionStatus {
	return domain.ConnectionStatus{
		State:      s.State(),
		LastBlock:  s.lastBlock.Load(),
		LastUpdate: time.Now(),
		Reconnects: int(s.reconnects.Load()),
		Polling:    s.polling.Load(),
	}
}

// Close stops every running subscription.
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Info(context.Background(), "closing block subscriber")
		close(s.done)
	})
	return nil
}

func (s *Subscriber) setState(state domain.ConnectionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()

	s.metrics.connectionState.Record(context.Background(), state.Value())
}
