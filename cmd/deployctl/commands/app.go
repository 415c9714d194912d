package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/mvvbapiraju/deployctl/pkg/config"
	"github.com/mvvbapiraju/deployctl/pkg/engine"
	"github.com/mvvbapiraju/deployctl/pkg/stores"
	"github.com/mvvbapiraju/deployctl/pkg/telemetry"
	"github.com/mvvbapiraju/deployctl/pkg/transports/local"
	sshtransport "github.com/mvvbapiraju/deployctl/pkg/transports/ssh"
)

// app is the wired runtime for one command invocation: configuration,
// telemetry, the command transport and the history store.
type app struct {
	cfg     *config.Config
	runner  engine.CommandRunner
	store   *stores.SQLiteStore
	emitter *telemetry.Emitter
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer

	sshClient *sshtransport.Client
}

// newApp loads the config and brings up logging, telemetry, the
// transport and the history store. Callers must Close it.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	logger.InstallGlobal()
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	a := &app{cfg: cfg}

	a.tracer, err = telemetry.NewTracer(cfg.Telemetry.Tracing,
		cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Telemetry.Environment)
	if err != nil {
		return nil, err
	}

	a.metrics, err = telemetry.NewMetrics(cfg.Telemetry.Metrics)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := a.metrics.Serve(); err != nil {
			log.Warn().Err(err).Msg("metrics endpoint stopped")
		}
	}()

	if err := a.setupTransport(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	if err := a.setupHistory(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	return a, nil
}

// instrumentedRunner wraps the transport with per-command metrics and
// tracing spans.
type instrumentedRunner struct {
	next    engine.CommandRunner
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
}

func (r *instrumentedRunner) Run(ctx context.Context, cmd engine.Command) (engine.CommandResult, error) {
	ctx, span := r.tracer.StartCommandSpan(ctx, cmd.Name)
	defer span.End()

	result, err := r.next.Run(ctx, cmd)
	r.record(span, cmd, result, err)
	return result, err
}

func (r *instrumentedRunner) RunOrFail(ctx context.Context, cmd engine.Command) (engine.CommandResult, error) {
	ctx, span := r.tracer.StartCommandSpan(ctx, cmd.Name)
	defer span.End()

	result, err := r.next.RunOrFail(ctx, cmd)
	r.record(span, cmd, result, err)
	return result, err
}

func (r *instrumentedRunner) record(span trace.Span, cmd engine.Command, result engine.CommandResult, err error) {
	outcome := "ok"
	if err != nil || result.ExitCode != 0 {
		outcome = "error"
		telemetry.RecordError(span, err)
	}
	r.metrics.CommandRun(cmd.Name, outcome, result.Duration)
}

func (a *app) setupTransport(ctx context.Context) error {
	switch a.cfg.Transport.Kind {
	case "ssh":
		sc := a.cfg.Transport.SSH
		sshConfig := sshtransport.DefaultConfig(sc.Host, sc.User)
		if sc.Port > 0 {
			sshConfig.Port = sc.Port
		}
		if sc.PrivateKeyPath != "" {
			sshConfig.PrivateKeyPath = sc.PrivateKeyPath
		}
		sshConfig.KnownHostsPath = sc.KnownHostsPath
		if sc.StagingDir != "" {
			sshConfig.StagingDir = sc.StagingDir
		}
		if sc.ConnectTimeout > 0 {
			sshConfig.ConnectTimeout = sc.ConnectTimeout
		}

		client, err := sshtransport.NewClient(sshConfig)
		if err != nil {
			return err
		}
		if err := client.Connect(ctx); err != nil {
			return err
		}
		a.sshClient = client
		a.runner = sshtransport.NewRunner(client)
	default:
		a.runner = local.NewRunner()
	}
	a.runner = &instrumentedRunner{next: a.runner, metrics: a.metrics, tracer: a.tracer}
	return nil
}

func (a *app) setupHistory(ctx context.Context) error {
	if a.cfg.History.Path == "" {
		a.emitter = telemetry.NewEmitter()
		return nil
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: a.cfg.History.Path})
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to migrate history store: %w", err)
	}

	a.store = store
	a.emitter = telemetry.NewEmitter(store)
	return nil
}

// objectStore wraps the platform store with remote staging when the
// transport is SSH: the revision bundle exists on this machine, but the
// upload command runs on the remote host, so the bundle goes across
// first.
func (a *app) objectStore(next engine.ObjectStore) engine.ObjectStore {
	if a.sshClient == nil {
		return next
	}
	return &stagedObjectStore{
		stager: sshtransport.NewStager(a.sshClient),
		next:   next,
	}
}

type stagedObjectStore struct {
	stager *sshtransport.Stager
	next   engine.ObjectStore
}

func (s *stagedObjectStore) Put(ctx context.Context, localPath string, location engine.StoreLocation) error {
	remotePath, err := s.stager.Stage(ctx, localPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.stager.Clean(ctx, remotePath); err != nil {
			log.Warn().Err(err).Str("path", remotePath).Msg("failed to clean staged bundle")
		}
	}()
	return s.next.Put(ctx, remotePath, location)
}

// Close releases everything newApp brought up.
func (a *app) Close(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close history store")
		}
	}
	if a.sshClient != nil {
		if err := a.sshClient.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close SSH connection")
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to shut down tracer")
		}
	}
}
