package main

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	sio "github.com/karagenc/sio-core"
	"github.com/karagenc/sio-core/adapter"
	"github.com/karagenc/sio-core/adapter/cluster"
	"github.com/karagenc/sio-core/adapter/cluster/redisbroker"
	"github.com/karagenc/sio-core/internal/config"
	"github.com/karagenc/sio-core/metrics"
	jsonparser "github.com/karagenc/sio-core/parser/json"
	"github.com/karagenc/sio-core/parser/json/serializer"
	siows "github.com/karagenc/sio-core/transport/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 5 * time.Second

type app struct {
	cfg    config.Config
	logger *zerolog.Logger

	json     serializer.JSONSerializer
	io       *sio.Server
	redis    *redis.Client
	registry *prometheus.Registry
	http     *http.Server
}

func newApp(cfg config.Config, logger *zerolog.Logger) (*app, error) {
	json, err := newSerializer(cfg.Serializer)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		json:   json,
	}
	debugger := sio.NewZerologDebugger(*logger)

	var creator adapter.Creator
	switch cfg.Adapter.Type {
	case config.AdapterRedis:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Adapter.Redis.Addr,
			Password: cfg.Adapter.Redis.Password,
			DB:       cfg.Adapter.Redis.DB,
		})
		creator = cluster.NewCreator(&cluster.Config{
			Broker:     redisbroker.New(a.redis),
			Prefix:     cfg.Adapter.Redis.Prefix,
			Serializer: json,
			Debugger:   debugger,
		})
	default:
		creator = adapter.NewInMemoryAdapterCreator()
	}

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		creator = metrics.NewCollector(a.registry).Instrument(creator)
	}

	a.io = sio.NewServer(&sio.ServerConfig{
		ParserCreator:  jsonparser.NewCreator(json),
		AdapterCreator: creator,
		AdapterTimeout: cfg.AdapterTimeout,
		ConnectTimeout: cfg.ConnectTimeout,
		Debugger:       debugger,
	})
	a.io.Of("/").OnConnection(a.onConnection)

	handler, err := a.handler()
	if err != nil {
		return nil, err
	}
	a.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return a, nil
}

func (a *app) handler() (http.Handler, error) {
	gz, err := gziphandler.NewGzipLevelAndMinSize(gzip.DefaultCompression, 0)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", siows.NewServer(a.io, &siows.Config{
		Debugger: sio.NewZerologDebugger(*a.logger),
	}))
	mux.Handle("/namespaces", gz(http.HandlerFunc(a.serveNamespaces)))
	if a.registry != nil {
		mux.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	}
	return mux, nil
}

// run serves until ctx is done, then shuts down within the shutdown timeout.
func (a *app) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().
			Str("addr", a.cfg.Addr).
			Str("adapter", a.cfg.Adapter.Type).
			Str("serializer", a.cfg.Serializer).
			Msg("starting sio-server")
		err := a.http.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.shutdown()
	})

	err := g.Wait()
	if err != nil {
		a.logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	a.logger.Info().Msg("server stopped")
	return nil
}

func (a *app) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	// Websocket handlers return once the socket.io server closes their connections.
	ioErr := a.io.Close()
	httpErr := a.http.Shutdown(ctx)

	var redisErr error
	if a.redis != nil {
		redisErr = a.redis.Close()
	}
	return errors.Join(ioErr, httpErr, redisErr)
}
