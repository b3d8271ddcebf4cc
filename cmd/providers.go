// File: cmd/providers.go
package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/internal/browser"
	"github.com/xkilldash9x/slidejig/internal/browser/rodsession"
	"github.com/xkilldash9x/slidejig/internal/browser/session"
	"github.com/xkilldash9x/slidejig/internal/config"
	"github.com/xkilldash9x/slidejig/internal/imaging"
	"github.com/xkilldash9x/slidejig/internal/observability"
	"github.com/xkilldash9x/slidejig/internal/store"
)

// storeProvider creates the attempt Recorder selected by the configuration.
// Tests inject an in-memory provider instead of a live backend.
type storeProvider interface {
	// Create returns the Recorder and a cleanup function that releases it.
	Create(ctx context.Context, cfg config.Interface) (store.Recorder, func(), error)
}

type defaultStoreProvider struct{}

// NewStoreProvider returns the provider that connects to redis or PostgreSQL.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface) (store.Recorder, func(), error) {
	logger := observability.GetLogger()
	sc := cfg.Store()

	switch sc.Type {
	case "", config.StoreNone:
		return store.NopRecorder{}, func() {}, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		})
		rs, err := store.NewRedis(ctx, client, store.RedisOptions{
			Key:    sc.Redis.Key,
			MaxLen: sc.Redis.MaxLen,
			TTL:    sc.Redis.TTL,
		}, logger)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to initialize redis store: %w", err)
		}
		return rs, closer(rs, logger), nil

	case config.StorePostgres:
		ps, err := store.OpenPostgres(ctx, sc.Postgres.URL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		return ps, closer(ps, logger), nil
	}
	return nil, nil, fmt.Errorf("unknown store type %q", sc.Type)
}

func closer(r store.Recorder, logger *zap.Logger) func() {
	return func() {
		if err := r.Close(); err != nil {
			logger.Warn("Failed to close attempt store", zap.Error(err))
		}
	}
}

// driverFactory opens the browser a solve runs in.
type driverFactory func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (browser.Driver, error)

func newDriver(ctx context.Context, cfg config.Interface, logger *zap.Logger) (browser.Driver, error) {
	bc, ch := cfg.Browser(), cfg.Challenge()
	layout := browser.CanvasLayout{
		Selector:      ch.CanvasSelector,
		OverlayIndex:  ch.OverlayIndex,
		PieceIndex:    ch.PieceIndex,
		OriginalIndex: ch.OriginalIndex,
	}

	if bc.Driver == config.DriverRod {
		s, err := rodsession.New(ctx, rodsession.Options{
			Headless:   bc.Headless,
			NoSandbox:  bc.NoSandbox,
			ExecPath:   bc.ExecPath,
			ControlURL: bc.ControlURL,
		}, layout, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := session.New(ctx, session.Options{
		Headless:     bc.Headless,
		NoSandbox:    bc.NoSandbox,
		ExecPath:     bc.ExecPath,
		WindowWidth:  bc.WindowWidth,
		WindowHeight: bc.WindowHeight,
		StepInterval: cfg.Drag().StepInterval,
	}, layout, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// newPipeline builds the image pipeline from the vision section.
func newPipeline(vc config.VisionConfig) (*imaging.Pipeline, error) {
	ops, err := imaging.NewOps(vc.Backend)
	if err != nil {
		return nil, err
	}
	pc := imaging.DefaultPipelineConfig()
	pc.Diff.Threshold = vc.Threshold
	pc.Diff.IncludeAntiAliasing = vc.IncludeAA
	pc.SlotCutoff = uint8(vc.SlotCutoff)
	pc.PieceCutoff = uint8(vc.PieceCutoff)
	pc.KernelSize = vc.KernelSize
	return imaging.NewPipeline(ops, pc), nil
}
