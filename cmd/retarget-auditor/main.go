package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/multialgo-retarget/internal/audit"
	"github.com/goodnatureofminers/multialgo-retarget/internal/consensus"
	"github.com/goodnatureofminers/multialgo-retarget/internal/headercache"
	"github.com/goodnatureofminers/multialgo-retarget/internal/metrics"
	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
	"github.com/goodnatureofminers/multialgo-retarget/internal/pow"
	"github.com/goodnatureofminers/multialgo-retarget/internal/repository/clickhouse"
	"github.com/goodnatureofminers/multialgo-retarget/internal/source/bitcoin"
	"github.com/goodnatureofminers/multialgo-retarget/internal/transport"
)

const readinessInterval = 5 * time.Second

type config struct {
	Network       model.Network `long:"network" env:"RETARGET_AUDITOR_NETWORK" description:"network name (mainnet, testnet, regtest)" required:"true"`
	ClickhouseDSN string        `long:"clickhouse-dsn" env:"RETARGET_AUDITOR_CLICKHOUSE_DSN" description:"ClickHouse DSN"`
	RPCURL        string        `long:"rpc-url" env:"RETARGET_AUDITOR_RPC_URL" description:"node RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser       string        `long:"rpc-user" env:"RETARGET_AUDITOR_RPC_USER" description:"node RPC username"`
	RPCPassword   string        `long:"rpc-password" env:"RETARGET_AUDITOR_RPC_PASSWORD" description:"node RPC password"`
	ZMQAddr       string        `long:"zmq-addr" env:"RETARGET_AUDITOR_ZMQ_ADDR" description:"node ZMQ endpoint publishing hashblock; empty polls only"`
	CachePath     string        `long:"cache-path" env:"RETARGET_AUDITOR_CACHE_PATH" description:"header cache directory; empty keeps the cache in memory"`
	StartHeight   uint64        `long:"start-height" env:"RETARGET_AUDITOR_START_HEIGHT" description:"first height to audit when nothing is stored yet" default:"0"`
	Warmup        uint64        `long:"warmup" env:"RETARGET_AUDITOR_WARMUP" description:"headers indexed below the first audited height" default:"2000"`
	BatchSize     uint64        `long:"batch-size" env:"RETARGET_AUDITOR_BATCH_SIZE" description:"headers fetched per iteration" default:"200"`
	Workers       int           `long:"workers" env:"RETARGET_AUDITOR_WORKERS" description:"concurrent header fetches" default:"16"`
	GRPCAddr      string        `long:"grpc-addr" env:"RETARGET_AUDITOR_GRPC_ADDR" description:"gRPC health server address" default:":8000"`
	HTTPAddr      string        `long:"http-addr" env:"RETARGET_AUDITOR_HTTP_ADDR" description:"REST and metrics address" default:":8001"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if cfg.ClickhouseDSN == "" {
		logger.Fatal("ClickHouse DSN is required")
	}

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("retarget auditor failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	params, err := consensus.ForNetwork(cfg.Network)
	if err != nil {
		return err
	}

	repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("close repository", zap.Error(err))
		}
	}()

	rpcClient, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init node rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()
	rpc := bitcoin.NewInstrumentedRPC(rpcClient, metrics.NewRPCClient(cfg.Network))

	store, err := headercache.Open(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open header cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close header cache", zap.Error(err))
		}
	}()
	source := headercache.NewSource(bitcoin.NewSource(rpc, cfg.Network), store, cfg.Network, logger.Named("headercache"))

	calculator := pow.NewCalculator(pow.Observers{
		pow.NewLogObserver(logger.Named("pow")),
		metrics.NewRetarget(),
	})
	svc, err := audit.NewService(
		source,
		repo,
		metrics.NewAuditor(cfg.Network),
		calculator,
		params,
		cfg.Network,
		audit.Config{
			StartHeight: cfg.StartHeight,
			Warmup:      cfg.Warmup,
			BatchSize:   cfg.BatchSize,
			WorkerCount: cfg.Workers,
		},
		logger.Named("audit"),
	)
	if err != nil {
		return err
	}

	wake, err := startBlockSignal(ctx, cfg.ZMQAddr, logger.Named("zmq"))
	if err != nil {
		return err
	}
	if wake != nil {
		svc.WakeOn(wake)
	}

	health := transport.NewHealth(logger.Named("health"))
	go health.Watch(ctx, svc.Ready, readinessInterval)

	if err := startGRPCServer(ctx, cfg.GRPCAddr, health, logger); err != nil {
		return err
	}
	handler := transport.NewHandler(cfg.Network, svc, repo, logger.Named("http"))
	if err := startHTTPServer(ctx, cfg.HTTPAddr, cfg.GRPCAddr, handler, logger); err != nil {
		return err
	}

	return svc.Run(ctx)
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	return rpcclient.New(&rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
}
