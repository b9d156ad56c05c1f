package authgate

import (
	"context"
	"errors"
	"fmt"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/permission"
	"github.com/MrEthical07/authgate/session"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/MrEthical07/authgate"

// Builder defines a public type used by authgate APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	sessions *session.Store
	records  RecordStore

	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	auditSink      AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New starts from [DefaultConfig]. Build fails until a RecordStore is supplied.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig copies cfg; later changes by the caller are not observed.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// Without a client or session store, Build connects through [session.SharedClient]
// using Config.Redis.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore describes the withsessionstore operation and its observable behavior.
//
// A session store takes precedence over WithRedis and Config.Session.RedisPrefix.
func (b *Builder) WithSessionStore(store *session.Store) *Builder {
	b.sessions = store
	return b
}

// WithRecordStore describes the withrecordstore operation and its observable behavior.
//
// If store also implements [UserRoleResolver], API-key identities carry the
// key owner's role.
func (b *Builder) WithRecordStore(store RecordStore) *Builder {
	b.records = store
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithTracerProvider describes the withtracerprovider operation and its observable behavior.
//
// Defaults to the global provider from go.opentelemetry.io/otel.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// The sink only receives events when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithDemoMode describes the withdemomode operation and its observable behavior.
func (b *Builder) WithDemoMode(enabled bool) *Builder {
	b.config.Gate.DemoMode = enabled
	return b
}

// WithMaintenance describes the withmaintenance operation and its observable behavior.
func (b *Builder) WithMaintenance(enabled bool) *Builder {
	b.config.Maintenance.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// A Builder can be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.records == nil {
		return nil, errors.New("record store required")
	}

	// -------- TOKENS --------
	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessTTL:         cfg.JWT.AccessTTL,
		RefreshTTL:        cfg.JWT.RefreshTTL,
		SigningMethod:     jwt.SigningMethod(cfg.JWT.SigningMethod),
		AccessPrivateKey:  cfg.JWT.AccessPrivateKey,
		AccessPublicKey:   cfg.JWT.AccessPublicKey,
		RefreshPrivateKey: cfg.JWT.RefreshPrivateKey,
		RefreshPublicKey:  cfg.JWT.RefreshPublicKey,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
		Leeway:            cfg.JWT.Leeway,
		KeyID:             cfg.JWT.KeyID,
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	// -------- SESSION STORE --------
	store := b.sessions
	if store == nil {
		client := b.redis
		if client == nil {
			client = session.SharedClient(session.RedisConfig{
				Addr:         cfg.Redis.Addr,
				Password:     cfg.Redis.Password,
				DB:           cfg.Redis.DB,
				PoolSize:     cfg.Redis.PoolSize,
				DialTimeout:  cfg.Redis.DialTimeout,
				ReadTimeout:  cfg.Redis.ReadTimeout,
				WriteTimeout: cfg.Redis.WriteTimeout,
			})
		}
		store = session.NewStore(client, cfg.Session.RedisPrefix)
	}

	// -------- ROLES / LIMITER --------
	roles := permission.NewRoleCache(b.records.FindRoleByName, cfg.Roles.CacheTTL)
	limiter := rate.New(store, rate.Config{
		Limit:  cfg.RateLimit.Limit,
		Window: cfg.RateLimit.Window,
	})

	// -------- OBSERVABILITY --------
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	engine := &Engine{
		config:      cfg,
		sessions:    store,
		records:     b.records,
		roles:       roles,
		limiter:     limiter,
		jwtManager:  jwtManager,
		metrics:     NewMetrics(cfg.Metrics),
		logger:      logger.Named("authgate"),
		tracer:      tp.Tracer(tracerName),
		rateMethods: methodSet(cfg.RateLimit.MutatingMethods),
	}

	if cfg.Audit.Enabled {
		engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    true,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink)
	}

	engine.initFlows()

	b.built = true
	return engine, nil
}

func (e *Engine) initFlows() {
	cfg := e.config

	var userRole func(ctx context.Context, userID string) (string, error)
	if resolver, ok := e.records.(UserRoleResolver); ok {
		userRole = resolver.FindUserRole
	}

	refresh := flows.RefreshDeps{
		Sessions:       e.sessions,
		VerifyRefresh:  e.jwtManager.VerifyRefreshToken,
		RefreshTokens:  e.jwtManager.RefreshTokens,
		GenerateTokens: e.jwtManager.GenerateTokens,
		PersistRotated: cfg.Session.PersistRotatedRefresh,
		NotFound:       session.ErrNotFound,
	}

	e.flows = flows.New(flows.Deps{
		Authenticate: flows.AuthenticateDeps{
			Keys:         e.records,
			UserRole:     userRole,
			VerifyAccess: e.jwtManager.VerifyAccessToken,
			Refresh:      refresh,
		},
		CSRF: flows.CSRFDeps{
			Sessions:       e.sessions,
			ProtectedPaths: pathSet(cfg.CSRF.ProtectedPaths),
			ReadMethods:    methodSet(cfg.CSRF.ReadMethods),
			NotFound:       session.ErrNotFound,
		},
		Gate: flows.GateDeps{
			Keys:            e.records,
			Roles:           e.roles,
			Capabilities:    cfg.Gate.Capabilities,
			DemoMode:        cfg.Gate.DemoMode,
			AdminPathPrefix: cfg.Gate.AdminPathPrefix,
			MutatingMethods: methodSet(cfg.Gate.MutatingMethods),
		},
		Maintenance: flows.MaintenanceDeps{
			Enabled: cfg.Maintenance.Enabled,
			Roles:   e.roles,
		},
		Plugin: flows.PluginDeps{
			Keys:         e.records,
			Capabilities: cfg.Gate.Capabilities,
		},
	})
}
