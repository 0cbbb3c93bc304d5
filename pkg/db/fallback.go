package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/okanvural/pickflow-backend/pkg/config"
	pkgerrors "github.com/okanvural/pickflow-backend/pkg/errors"
	"github.com/okanvural/pickflow-backend/pkg/logger"
)

const (
	defaultProbeTimeout = 3 * time.Second
	probeRounds         = 3
	probeRetryDelay     = 500 * time.Millisecond
	breakerTripAfter    = 2
	breakerOpenWindow   = 30 * time.Second
)

// endpointProber walks the configured endpoint chain until one answers a
// liveness probe. Each endpoint sits behind its own circuit breaker so a dead
// primary is skipped instantly on later rounds instead of eating its probe
// timeout every pass.
type endpointProber struct {
	breakers     map[string]*gobreaker.CircuitBreaker
	probeTimeout time.Duration
	logg         *logger.Logger
}

func newEndpointProber(cfg config.DBConfig, logg *logger.Logger) *endpointProber {
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &endpointProber{
		breakers:     map[string]*gobreaker.CircuitBreaker{},
		probeTimeout: timeout,
		logg:         logg,
	}
}

func (p *endpointProber) selectDSN(ctx context.Context, primary string, fallbacks []string) (string, error) {
	chain := append([]string{primary}, fallbacks...)

	var lastErr error
	for round := 0; round < probeRounds; round++ {
		for _, dsn := range chain {
			if err := p.probe(ctx, dsn); err != nil {
				lastErr = err
				if p.logg != nil {
					probeCtx := p.logg.WithFields(ctx, map[string]any{"endpoint": dsnLabel(dsn), "round": round + 1})
					p.logg.Warn(probeCtx, "database endpoint probe failed")
				}
				continue
			}
			return dsn, nil
		}

		select {
		case <-ctx.Done():
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "endpoint selection canceled")
		case <-time.After(probeRetryDelay):
		}
	}

	return "", pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "no reachable database endpoint")
}

func (p *endpointProber) probe(ctx context.Context, dsn string) error {
	cb := p.breakerFor(dsn)
	_, err := cb.Execute(func() (any, error) {
		return nil, pingEndpoint(ctx, dsn, p.probeTimeout)
	})
	return err
}

func (p *endpointProber) breakerFor(dsn string) *gobreaker.CircuitBreaker {
	label := dsnLabel(dsn)
	if cb, ok := p.breakers[label]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        label,
		MaxRequests: 1,
		Timeout:     breakerOpenWindow,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
	})
	p.breakers[label] = cb
	return cb
}

// pingEndpoint dials the endpoint once within timeout. Opening with automatic
// ping disabled keeps the dial entirely inside the bounded PingContext call.
func pingEndpoint(ctx context.Context, dsn string, timeout time.Duration) error {
	dialector := postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true})
	gormCfg := gormConfig()
	gormCfg.DisableAutomaticPing = true

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening probe connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("probe sql handle: %w", err)
	}
	defer sqlDB.Close()

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sqlDB.PingContext(probeCtx)
}

// dsnLabel reduces a DSN to host:port for logs and breaker names, never
// exposing credentials.
func dsnLabel(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "endpoint"
	}
	return u.Host
}
