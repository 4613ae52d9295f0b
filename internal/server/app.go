// Package server builds the application's dependencies from configuration
// and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/narration-leads/internal/api"
	"github.com/JakeFAU/narration-leads/internal/clock/system"
	"github.com/JakeFAU/narration-leads/internal/config"
	"github.com/JakeFAU/narration-leads/internal/crm"
	"github.com/JakeFAU/narration-leads/internal/crm/agiled"
	"github.com/JakeFAU/narration-leads/internal/crm/proxy"
	"github.com/JakeFAU/narration-leads/internal/events"
	"github.com/JakeFAU/narration-leads/internal/id/uuid"
	"github.com/JakeFAU/narration-leads/internal/lead"
	"github.com/JakeFAU/narration-leads/internal/logging"
	"github.com/JakeFAU/narration-leads/internal/metrics"
	"github.com/JakeFAU/narration-leads/internal/notify"
	"github.com/JakeFAU/narration-leads/internal/notify/smtp"
	"github.com/JakeFAU/narration-leads/internal/pipeline"
	"github.com/JakeFAU/narration-leads/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/narration-leads/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/narration-leads/internal/publisher/pubsub"
	leadstorage "github.com/JakeFAU/narration-leads/internal/storage"
	dynamostore "github.com/JakeFAU/narration-leads/internal/storage/dynamodb"
	firestorestore "github.com/JakeFAU/narration-leads/internal/storage/firestore"
	gcsstorage "github.com/JakeFAU/narration-leads/internal/storage/gcs"
	localstorage "github.com/JakeFAU/narration-leads/internal/storage/local"
	memorystorage "github.com/JakeFAU/narration-leads/internal/storage/memory"
	pgstore "github.com/JakeFAU/narration-leads/internal/storage/postgres"
	"github.com/JakeFAU/narration-leads/internal/telemetry"
)

// Version is reported as the service version on exported spans.
var Version = "dev"

// App contains the application's dependencies.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	apiServer  *api.Server
	store      lead.Store
	dispatcher *events.Dispatcher
	recent     *memorypublisher.Publisher
	publisher  *gcppublisher.Publisher
	gcs        *storage.Client
	tracer     *sdktrace.TracerProvider
}

// Build creates the application's dependencies. Optional collaborators that
// are not configured are replaced by disabled implementations; a store that
// cannot be opened is replaced by one that reports it unavailable.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return BuildWithLogger(ctx, cfg, logger)
}

// BuildWithLogger is Build with a caller-supplied logger.
func BuildWithLogger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()
	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Any("capabilities", cfg.Capabilities()),
	)

	if err := setupTelemetry(ctx, app); err != nil {
		return nil, err
	}
	app.store = setupStore(ctx, app)
	notifier := setupNotifier(app)
	crmClient, crmProxy, err := setupCRM(app)
	if err != nil {
		return nil, err
	}
	setupEvents(ctx, app)

	var emitter events.Emitter = events.Discard{}
	if app.dispatcher != nil {
		emitter = app.dispatcher
	}
	pipe := pipeline.New(pipeline.Config{
		ContactCollection:  cfg.Store.ContactCollection,
		EstimateCollection: cfg.Store.EstimateCollection,
		DedupByEmail:       cfg.Store.DedupByEmail,
		StepTimeout:        cfg.StepTimeout(),
	}, pipeline.Deps{
		Store:     app.store,
		Notifier:  notifier,
		CRM:       crmClient,
		Validator: lead.NewValidator(lead.RequireFirstName(cfg.Estimate.RequireFirstName)),
		Events:    emitter,
		Logger:    logger.Named("pipeline"),
	})

	deps := api.Deps{
		Pipeline: pipe,
		Store:    app.store,
		CRMProxy: crmProxy,
		Logger:   logger.Named("api"),
	}
	if app.recent != nil {
		deps.Events = app.recent
	}
	if cfg.RateLimit.Enabled {
		deps.Limiter = ratelimit.New(ratelimit.Config{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst})
		logger.Info("submission rate limit enabled",
			zap.Float64("rps", cfg.RateLimit.RPS),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
	}
	app.apiServer = api.NewServer(*cfg, deps)
	return app, nil
}

// Handler returns the application's HTTP handler.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run starts the application and blocks until the context is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	closeErr := a.Close(shutdownCtx)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		return closeErr
	}
}

// Close releases every client the application opened.
func (a *App) Close(ctx context.Context) error {
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(ctx); err != nil {
			a.logger.Warn("event dispatcher close failed", zap.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("pubsub publisher close failed", zap.Error(err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("document store close failed", zap.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
	return nil
}

func setupTelemetry(ctx context.Context, app *App) error {
	cfg := app.cfg.Telemetry
	if !cfg.Enabled {
		app.logger.Info("tracing disabled")
		return nil
	}
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.ServiceName,
		Version:     Version,
		ProjectID:   cfg.ProjectID,
		SampleRatio: cfg.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracer init failed: %w", err)
	}
	app.tracer = tp
	app.logger.Info("tracing initialized",
		zap.String("service", cfg.ServiceName),
		zap.Bool("export", cfg.ProjectID != ""),
		zap.Float64("sample_ratio", cfg.SampleRatio),
	)
	return nil
}

func setupStore(ctx context.Context, app *App) lead.Store {
	cfg := app.cfg
	logger := app.logger.Named("store")
	var (
		store lead.Store
		err   error
	)
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		var pg *pgstore.DocumentStore
		pg, err = pgstore.NewDocumentStore(ctx, pgstore.Config{
			DSN:             cfg.Postgres.DSN,
			Table:           cfg.Postgres.Table,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: time.Duration(cfg.Postgres.MaxConnLifetimeSeconds) * time.Second,
		}, uuid.New())
		if err == nil && cfg.Postgres.AutoMigrate {
			if err = pg.Migrate(ctx); err != nil {
				_ = pg.Close()
			}
		}
		if err == nil {
			store = pg
		}
	case config.DriverFirestore:
		store, err = firestorestore.NewDocumentStore(ctx, firestorestore.Config{
			ProjectID:  cfg.Firestore.ProjectID,
			DatabaseID: cfg.Firestore.DatabaseID,
		})
	case config.DriverDynamoDB:
		store, err = dynamostore.NewDocumentStore(ctx, dynamostore.Config{
			Region:     cfg.DynamoDB.Region,
			Table:      cfg.DynamoDB.Table,
			EmailIndex: cfg.DynamoDB.EmailIndex,
			Endpoint:   cfg.DynamoDB.Endpoint,
		}, uuid.New(), system.New())
	default:
		store = memorystorage.NewDocumentStore(uuid.New(), system.New())
		logger.Warn("using in-memory document store; submissions are lost on restart")
	}
	if err != nil {
		logger.Error("document store init failed; submissions will report storage unavailable",
			zap.String("driver", cfg.Store.Driver),
			zap.Error(err),
		)
		return leadstorage.NewUnavailable(cfg.Store.Driver, err)
	}
	logger.Info("document store initialized", zap.String("driver", cfg.Store.Driver))
	return store
}

func setupNotifier(app *App) lead.Notifier {
	mail := app.cfg.Mail
	n, err := smtp.New(smtp.Config{
		Host:     mail.Host,
		Port:     mail.Port,
		Username: mail.Username,
		Password: mail.Password,
		FromName: mail.FromName,
		To:       mail.To,
	})
	if err != nil {
		app.logger.Warn("operator notifications disabled", zap.Error(err))
		return notify.Disabled{}
	}
	app.logger.Info("smtp notifier initialized", zap.String("host", mail.Host), zap.String("to", mail.To))
	return n
}

func setupCRM(app *App) (lead.CRM, http.Handler, error) {
	cfg := app.cfg
	var handler http.Handler
	if cfg.CRM.ProxyEnabled {
		var err error
		handler, err = proxy.New(cfg.CRM.ProxyPrefix, cfg.CRM.APIURL, app.logger.Named("crm_proxy"))
		if err != nil {
			return nil, nil, fmt.Errorf("crm proxy init failed: %w", err)
		}
	}
	brand, err := cfg.CRMBrand()
	if err != nil {
		return nil, nil, err
	}
	client, err := agiled.New(agiled.Config{
		APIURL: cfg.CRM.APIURL,
		APIKey: cfg.CRM.APIKey,
		Brand:  brand,
	}, nil, cfg.StepTimeout())
	if err != nil {
		app.logger.Warn("crm sync disabled", zap.Error(err))
		return crm.Disabled{}, handler, nil
	}
	app.logger.Info("crm client initialized", zap.String("brand", brand))
	return client, handler, nil
}

// setupEvents builds the lead event sinks. Events are best-effort, so a sink
// that cannot be opened is logged and left out rather than failing startup.
func setupEvents(ctx context.Context, app *App) {
	cfg := app.cfg.Events
	var sinks []events.Sink
	if cfg.Log {
		sinks = append(sinks, events.NewLogSink(app.logger.Named("events")))
	}
	if cfg.Memory.Enabled {
		app.recent = memorypublisher.New(cfg.Memory.Capacity)
		sinks = append(sinks, events.NewPublisherSink("memory", app.recent))
		app.logger.Info("memory event sink initialized", zap.Int("capacity", cfg.Memory.Capacity))
	}
	if cfg.PubSub.Topic != "" {
		pub, err := gcppublisher.New(ctx, gcppublisher.Config{ProjectID: cfg.PubSub.ProjectID, Topic: cfg.PubSub.Topic})
		if err != nil {
			app.logger.Warn("pubsub event sink disabled", zap.String("topic", cfg.PubSub.Topic), zap.Error(err))
		} else {
			app.publisher = pub
			sinks = append(sinks, events.NewPublisherSink("pubsub", pub))
			app.logger.Info("pubsub event sink initialized",
				zap.String("project", cfg.PubSub.ProjectID),
				zap.String("topic", cfg.PubSub.Topic),
			)
		}
	}
	blobs, err := setupArchive(ctx, app)
	if err != nil {
		app.logger.Warn("archive event sink disabled", zap.Error(err))
	} else if blobs != nil {
		sinks = append(sinks, events.NewArchiveSink("archive", blobs, cfg.Archive.Prefix))
	}
	if len(sinks) == 0 {
		app.logger.Info("lead events disabled")
		return
	}
	app.dispatcher = events.NewDispatcher(events.Config{
		SinkTimeout: app.cfg.StepTimeout(),
		Logger:      app.logger.Named("events"),
	}, sinks...)
	app.logger.Info("event dispatcher initialized", zap.Strings("sinks", app.dispatcher.Sinks()))
}

func setupArchive(ctx context.Context, app *App) (leadstorage.BlobStore, error) {
	cfg := app.cfg.Events.Archive
	switch {
	case cfg.Bucket != "":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		blobs, err := gcsstorage.New(client, gcsstorage.Config{Bucket: cfg.Bucket})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("gcs archive init failed: %w", err)
		}
		app.gcs = client
		app.logger.Info("gcs event archive initialized", zap.String("bucket", cfg.Bucket))
		return blobs, nil
	case cfg.Dir != "":
		blobs, err := localstorage.New(localstorage.Config{BaseDir: cfg.Dir})
		if err != nil {
			return nil, fmt.Errorf("local archive init failed: %w", err)
		}
		app.logger.Info("local event archive initialized", zap.String("dir", cfg.Dir))
		return blobs, nil
	default:
		return nil, nil
	}
}
