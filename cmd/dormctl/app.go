package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"dormcore/internal/config"
	"dormcore/internal/core"
	"dormcore/internal/export"
	"dormcore/internal/infra/artifact"
	artifacts3 "dormcore/internal/infra/artifact/s3"
	"dormcore/internal/logging"
	"dormcore/internal/report"
	"dormcore/pkg/domain"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg      config.Config
	zl       *zap.Logger
	log      logging.Adapter
	handle   *core.Handle
	backend  domain.Backend
	redis    *redis.Client
	registry *prometheus.Registry
	expvar   *core.ExpvarMetricsRecorder
	cache    *report.Cache
	exporter *export.Exporter
}

// newApp wires the components for cfg. Trace lines go to stderr when
// cfg.Trace is "stderr".
func newApp(cfg config.Config, stderr io.Writer) (*app, error) {
	zl, err := logging.New(cfg.Log.Level, cfg.Log.Format, "dormctl")
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	a := &app{cfg: cfg, zl: zl, log: logging.Adapt(zl)}
	opts := []core.Option{core.WithLogger(a.log.Named("repository")), core.WithSeed(cfg.Seed)}
	switch cfg.Metrics {
	case "expvar":
		a.expvar = core.NewExpvarMetricsRecorder("")
		opts = append(opts, core.WithMetricsRecorder(a.expvar))
	case "prometheus":
		a.registry = prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(a.registry)
		if err != nil {
			return nil, err
		}
		opts = append(opts, core.WithMetricsRecorder(rec))
	}
	if cfg.Trace == "stderr" {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(stderr)))
	}
	a.handle = core.NewHandle(a.openBackend, opts...)
	return a, nil
}

func (a *app) openBackend(ctx context.Context) (domain.Backend, error) {
	b, err := core.OpenBackend(ctx, core.BackendConfig{
		Driver:      core.StorageDriver(a.cfg.Storage.Driver),
		DataDir:     a.cfg.DataDir,
		SQLitePath:  a.cfg.Storage.SQLitePath,
		PostgresDSN: a.cfg.Storage.PostgresDSN,
		Logger:      a.log.Named("storage"),
	})
	if err != nil {
		return nil, err
	}
	a.backend = b
	return b, nil
}

func (a *app) repo(ctx context.Context) (*core.Repository, error) {
	return a.handle.Get(ctx)
}

func (a *app) reports(ctx context.Context) (*report.Cache, error) {
	if a.cache != nil {
		return a.cache, nil
	}
	repo, err := a.repo(ctx)
	if err != nil {
		return nil, err
	}
	opts := []report.CacheOption{
		report.WithTTL(a.cfg.Report.TTL),
		report.WithLogger(a.log.Named("report")),
		report.WithClock(repo.Clock()),
	}
	if a.registry != nil {
		opts = append(opts, report.WithRegisterer(a.registry))
	}
	if a.cfg.Report.Cache == "redis" {
		a.redis = redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr, Password: a.cfg.Redis.Password, DB: a.cfg.Redis.DB})
		opts = append(opts, report.WithStore(report.NewRedisStore(a.redis, a.cfg.Redis.Prefix, a.cfg.Report.TTL)))
	}
	a.cache = report.NewCache(repo, opts...)
	return a.cache, nil
}

func (a *app) exports(ctx context.Context) (*export.Exporter, error) {
	if a.exporter != nil {
		return a.exporter, nil
	}
	store, err := export.OpenArtifacts(ctx, export.ArtifactConfig{
		Driver: artifact.Driver(a.cfg.Export.Driver),
		Root:   a.cfg.Export.Root,
		S3: artifacts3.Config{
			Bucket:    a.cfg.S3.Bucket,
			Region:    a.cfg.S3.Region,
			Endpoint:  a.cfg.S3.Endpoint,
			Prefix:    a.cfg.S3.Prefix,
			PathStyle: a.cfg.S3.PathStyle,
		},
	})
	if err != nil {
		return nil, err
	}
	idx, err := export.OpenIndex(filepath.Join(a.cfg.DataDir, export.IndexFileName), a.log.Named("export"))
	if err != nil {
		return nil, err
	}
	a.exporter = export.New(store, idx, export.WithLogger(a.log.Named("export")))
	return a.exporter, nil
}

// writeMetrics dumps the configured recorder: Prometheus text exposition or
// the expvar JSON document.
func (a *app) writeMetrics(w io.Writer) error {
	switch {
	case a.registry != nil:
		families, err := a.registry.Gather()
		if err != nil {
			return err
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
				return err
			}
		}
	case a.expvar != nil:
		if v := expvar.Get(a.expvar.Name()); v != nil {
			_, err := fmt.Fprintln(w, v.String())
			return err
		}
	}
	return nil
}

func (a *app) close() {
	if c, ok := a.backend.(io.Closer); ok {
		_ = c.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.zl.Sync()
}
