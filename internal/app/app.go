// Package app wires the contest components from configuration and owns
// their lifetime.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/archiver"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/config"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/distributor"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/generator"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/health"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/ledger"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/logging"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/netx"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/pipeline"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/repositories/repomanager"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/resolver"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/tally"
	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	config *config.Config
	logger logging.Logger

	db        *sql.DB
	rm        repomanager.RepositoryManager
	ledger    *ledger.Client
	store     *ledger.SQLStore
	submitter *ledger.Submitter

	exec        *netx.Executor
	distributor *distributor.Distributor
	metrics     *pipeline.Metrics

	closeOnce sync.Once
}

// NewApp opens the database, applies migrations and connects to the ledger.
// Chat and social sessions are opened on first use.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	lc, err := ledger.Dial(ctx, c.RPCURL, ledger.ClientOptions{
		Contract:   c.ContractAddress,
		Key:        c.SignerKey,
		ChainID:    c.ChainID,
		GasLimit:   c.GasLimit,
		StartBlock: c.LedgerStartBlock,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger init error: %w", err)
	}

	store := ledger.NewSQLStore(db, rm)
	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		rm:        rm,
		ledger:    lc,
		store:     store,
		submitter: ledger.NewSubmitter(lc, store, c.CallTimeout, logger),
		exec: netx.NewExecutor(&http.Client{Timeout: c.CallTimeout}, netx.RetryConfig{
			MaxRetries: c.RetryMaxRetries,
			BaseDelay:  c.RetryBaseDelay,
			MaxDelay:   c.RetryMaxDelay,
		}),
		metrics: pipeline.NewMetrics(prometheus.DefaultRegisterer),
	}, nil
}

// WithSignals returns a context cancelled on SIGINT, SIGTERM or SIGQUIT.
func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
}

// RunCycle produces one contest cycle of n entries.
func (app *App) RunCycle(ctx context.Context, n int, keywords string) (models.CycleReport, error) {
	p, err := app.buildPipeline(ctx)
	if err != nil {
		return models.CycleReport{}, err
	}
	return p.RunCycle(ctx, n, keywords)
}

func (app *App) GenerateOne(ctx context.Context, keywords string) (models.EntryOutcome, error) {
	p, err := app.buildPipeline(ctx)
	if err != nil {
		return models.EntryOutcome{}, err
	}
	return p.GenerateOne(ctx, keywords)
}

func (app *App) ResolveWinner(ctx context.Context) (models.WinnerDecision, []models.EngagementResult, error) {
	p, err := app.buildPipeline(ctx)
	if err != nil {
		return models.WinnerDecision{}, nil, err
	}
	return p.ResolveWinner(ctx)
}

// Reconcile drives the outbox until ctx is done, serving gRPC health on the
// configured address meanwhile.
func (app *App) Reconcile(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	r := ledger.NewReconciler(app.store, app.ledger, app.ledger, ledger.ReconcilerOptions{
		MaxAttempts:     app.config.OutboxMaxAttempts,
		FinalityTimeout: app.config.FinalityTimeout,
		ClaimTimeout:    4 * app.config.CallTimeout,
	}, app.logger)
	hs := health.NewServer(app.config.HealthAddr, app.logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hs.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	hs.SetServing(true)
	app.logger.Info(ctx, "Starting reconciler...", "interval", app.config.ReconcileInterval.String())
	err := r.Run(ctx, app.config.ReconcileInterval)
	hs.SetServing(false)
	cancelFunc()
	wg.Wait()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (app *App) buildPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	policy, err := resolver.ParsePolicy(app.config.WinnerPolicy)
	if err != nil {
		return nil, err
	}
	store, err := app.contentStore(ctx)
	if err != nil {
		return nil, err
	}
	dist, err := app.openDistributor(ctx)
	if err != nil {
		return nil, err
	}

	c := app.config
	arch := archiver.New(store, c.CallTimeout, app.logger)
	gen := generator.New(
		generator.NewCompletionClient(app.exec, c.LLMBaseURL, c.LLMModel, c.LLMAPIKey),
		generator.NewTenorClient(app.exec, c.TenorBaseURL, c.TenorAPIKey, c.TenorClientKey),
		c.CallTimeout, app.logger,
	)
	t := tally.New(app.ledger, arch, dist, app.rm.Entries(app.db), c.TallyConcurrency, app.logger)

	return pipeline.New(pipeline.Deps{
		Generator: gen,
		Publisher: dist,
		Archiver:  arch,
		Submitter: app.submitter,
		Tally:     t,
		Resolver:  resolver.New(app.submitter, policy, app.logger),
	}, app.creator(), c.EntryTimeout, app.metrics, app.logger), nil
}

func (app *App) creator() string {
	if app.config.CreatorAddress != "" {
		return app.config.CreatorAddress
	}
	return app.ledger.Sender().Hex()
}

func (app *App) contentStore(ctx context.Context) (archiver.ContentStore, error) {
	c := app.config
	switch c.StorageBackend {
	case config.StoragePinata:
		return archiver.NewPinataStore(app.exec, c.PinataAPIURL, c.PinataGateway, c.PinataJWT, c.DownloadMaxBytes)
	case config.StorageS3:
		return archiver.NewS3Store(ctx, archiver.S3Settings{
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func (app *App) openDistributor(ctx context.Context) (*distributor.Distributor, error) {
	if app.distributor != nil {
		return app.distributor, nil
	}
	c := app.config

	chat, err := distributor.OpenDiscord(c.DiscordToken, c.DiscordGuildID, c.DiscordChannelID)
	if err != nil {
		return nil, err
	}

	var social distributor.SocialNetwork
	if x, err := app.openX(ctx); err != nil {
		app.logger.Warn(ctx, "social channel disabled", "error", err)
	} else {
		social = x
	}

	app.distributor = distributor.New(chat, social, app.exec, c.DownloadMaxBytes, c.CallTimeout, app.logger)
	return app.distributor, nil
}

func (app *App) openX(ctx context.Context) (*distributor.XClient, error) {
	c := app.config
	cookies, err := distributor.LoadCookies(c.TwitterCookiesPath)
	if err != nil {
		return nil, err
	}
	x, err := distributor.NewXClient(cookies)
	if err != nil {
		return nil, err
	}
	if err := x.Verify(ctx); err != nil {
		_ = x.Close()
		return nil, err
	}
	app.logger.Info(ctx, "social session ready", "cookies", c.TwitterCookiesPath)
	return x, nil
}

// Close releases sessions, the ledger connection and the database. It is
// safe to call more than once.
func (app *App) Close() error {
	var errs []error
	app.closeOnce.Do(func() {
		if app.distributor != nil {
			errs = append(errs, app.distributor.Close())
		}
		app.ledger.Close()
		errs = append(errs, app.db.Close())
	})
	return errors.Join(errs...)
}
