package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"gdpgate/internal/audit"
	"gdpgate/internal/degrade"
	degrademetrics "gdpgate/internal/degrade/metrics"
	"gdpgate/internal/domain"
	"gdpgate/internal/notify"
	"gdpgate/internal/override"
	overridehandler "gdpgate/internal/override/handler"
	overridemetrics "gdpgate/internal/override/metrics"
	"gdpgate/internal/platform/config"
	"gdpgate/internal/platform/httpserver"
	"gdpgate/internal/platform/logger"
	redisplatform "gdpgate/internal/platform/redis"
	"gdpgate/internal/qualifier"
	"gdpgate/internal/ratelimit"
	"gdpgate/internal/ratelimit/bucket"
	ratelimitmetrics "gdpgate/internal/ratelimit/metrics"
	"gdpgate/internal/ruledata"
	"gdpgate/internal/threshold"
	httptransport "gdpgate/internal/transport/http"
	"gdpgate/internal/validation"
	validationhandler "gdpgate/internal/validation/handler"
	validationmetrics "gdpgate/internal/validation/metrics"
	"gdpgate/migrations"
	"gdpgate/pkg/platform/middleware/auth"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	approverRoles, err := parseRoles(cfg.Override.ApproverRoles)
	if err != nil {
		return fmt.Errorf("parse approver roles: %w", err)
	}

	// Persistent stores when Postgres is configured, in-memory otherwise.
	var (
		pool          *pgxpool.Pool
		ruleStore     ruleStores
		overrideStore override.Store
		auditStore    audit.Store
		auditPG       *audit.PostgresStore
	)
	if cfg.PostgresURL != "" {
		pool, err = pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if cfg.DatabaseMigrate {
			if _, err := pool.Exec(ctx, migrations.Schema()); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
		}

		db, err := audit.OpenPostgres(cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open audit database: %w", err)
		}
		defer db.Close()

		pg := ruledata.NewPostgresStore(pool)
		ruleStore = pg
		overrideStore = override.NewPostgresStore(pool)
		auditPG = audit.NewPostgresStore(db)
		auditStore = auditPG
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		ruleStore = ruledata.NewMemoryStore()
		overrideStore = override.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
	}

	redisClient, err := redisplatform.New(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	auditor := audit.NewPublisher(auditStore, audit.WithLogger(log))
	dispatcher := notify.NewLogDispatcher(log, notify.Config{
		OnApproval:  cfg.Notify.OnApproval,
		OnRejection: cfg.Notify.OnRejection,
		Recipients:  cfg.Notify.Recipients,
	})

	overrideService := override.NewService(overrideStore, override.Config{
		ApproverRoles:        approverRoles,
		RequireJustification: cfg.Override.RequireJustification,
		MinJustificationLen:  cfg.Override.MinJustificationLen,
		MaxOverrideAge:       cfg.Override.MaxOverrideAge,
		CriticalCodes:        violationCodes(cfg.Override.DualApprovalCriticalCodes),
	},
		override.WithLogger(log),
		override.WithMetrics(overridemetrics.New()),
		override.WithNotifier(dispatcher),
		override.WithAuditor(auditor),
	)

	validationService := validation.NewService(
		qualifier.New(ruleStore, ruleStore, qualifier.WithLogger(log)),
		threshold.New(ruleStore, threshold.WithLogger(log)),
		overrideService,
		validation.Config{OverrideEligibleCodes: violationCodes(cfg.Override.EligibleCodes)},
		validation.WithLogger(log),
		validation.WithMetrics(validationmetrics.New()),
		validation.WithAuditor(auditor),
	)

	// Health probing feeds the degradation gate.
	health := degrade.NewHealth()
	prober := degrade.NewProber(health, probeChecks(pool, redisClient, cfg.Degrade.ERPHealthURL),
		cfg.Degrade.ProbePeriod, cfg.Degrade.ProbeInitialDelay,
		degrade.WithProbeLogger(log),
		degrade.WithProbeMetrics(degrademetrics.New()),
	)
	gate := degrade.NewGate(health, int(cfg.Degrade.RetryAfter.Seconds()),
		degrade.WithGateLogger(log),
	)

	var primaryBuckets bucket.Store
	if redisClient != nil {
		primaryBuckets = bucket.NewRedisStore(redisClient.Client)
	}
	limiter := ratelimit.NewLimiter(primaryBuckets, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window,
		ratelimit.WithLimiterLogger(log))
	rateLimit := ratelimit.New(limiter, log,
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
		ratelimit.WithMetrics(ratelimitmetrics.New()),
	)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		log.Warn("JWT_SECRET not set, using development secret")
		secret = "development-only-secret"
	}
	validator := auth.NewValidator([]byte(secret), cfg.Auth.Issuer)

	router := httptransport.NewRouter(httptransport.Deps{
		Validation: validationhandler.New(validationService, ruleStore, ruleStore, log),
		Override:   overridehandler.New(overrideService, log),
		Health:     degrade.NewHandler(health),
		Gate:       gate,
		RateLimit:  rateLimit,
		Auth:       validator,
		Logger:     log,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		prober.Run(groupCtx)
		return nil
	})
	if cfg.Override.MaxOverrideAge > 0 {
		sweeper := override.NewSweeper(overrideService, overrideStore,
			cfg.Override.SweepInterval, cfg.Override.MaxOverrideAge, log)
		group.Go(func() error { return sweeper.Run(groupCtx) })
	}
	if auditPG != nil && len(cfg.KafkaBrokers) > 0 {
		relay, err := audit.NewRelay(auditPG, cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return fmt.Errorf("create audit relay: %w", err)
		}
		group.Go(func() error { return relay.Run(groupCtx) })
	}
	group.Go(func() error {
		log.Info("starting gdpgate", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ruleStores is the combined rule-data surface both store implementations
// provide.
type ruleStores interface {
	ruledata.LicenceStore
	ruledata.ProfileStore
	ruledata.ThresholdStore
}

func parseRoles(raw []string) ([]domain.ApproverRole, error) {
	roles := make([]domain.ApproverRole, 0, len(raw))
	for _, r := range raw {
		role, err := domain.ParseApproverRole(r)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func violationCodes(raw []string) []domain.ViolationCode {
	codes := make([]domain.ViolationCode, 0, len(raw))
	for _, c := range raw {
		codes = append(codes, domain.ViolationCode(c))
	}
	return codes
}

// probeChecks builds the dependency checks for the health prober. Unset
// dependencies report healthy so local runs are not permanently degraded.
func probeChecks(pool *pgxpool.Pool, redisClient *redisplatform.Client, erpHealthURL string) map[degrade.Dependency]degrade.Check {
	checks := map[degrade.Dependency]degrade.Check{}

	checks[degrade.DependencyMasterData] = func(ctx context.Context) (string, error) {
		if pool == nil {
			return "in-memory store", nil
		}
		if err := pool.Ping(ctx); err != nil {
			return "", err
		}
		return "postgres reachable", nil
	}

	checks[degrade.DependencyERP] = func(ctx context.Context) (string, error) {
		if erpHealthURL == "" {
			return "not configured", nil
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, erpHealthURL, nil)
		if err != nil {
			return "", err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return "", fmt.Errorf("erp health returned %d", resp.StatusCode)
		}
		return fmt.Sprintf("erp returned %d", resp.StatusCode), nil
	}

	checks[degrade.DependencyBlob] = func(ctx context.Context) (string, error) {
		if redisClient == nil {
			return "not configured", nil
		}
		if err := redisClient.Health(ctx); err != nil {
			return "", err
		}
		return "redis reachable", nil
	}

	return checks
}
