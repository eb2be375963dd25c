package encoder_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"petfinder/internal/config"
	"petfinder/internal/encoder"
)

type Result struct {
	fx.Out

	// Encoder serves searches and zero-shot detection. It waits on Limiter
	// before every call.
	Encoder encoder.Encoder
	// IndexEncoder is the unwrapped encoder; the index applies Limiter per
	// item itself so cache hits cost nothing.
	IndexEncoder encoder.Encoder `name:"index_encoder"`
	// Limiter is the one ENCODER_RPS budget shared by every caller.
	Limiter *rate.Limiter `name:"encoder_limiter"`
}

var Module = fx.Provide(provideEncoder)

// provideEncoder owns the encoder lifecycle: it is created once for the
// process and closed on shutdown.
func provideEncoder(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (Result, error) {
	var enc encoder.Encoder
	switch cfg.Encoder.Provider {
	case "onnx":
		onnx, err := encoder.NewONNXEncoder(encoder.ONNXConfig{
			ModelPath:   cfg.Encoder.ONNX.ModelPath,
			LibraryPath: cfg.Encoder.ONNX.LibraryPath,
			InputName:   cfg.Encoder.ONNX.InputName,
			OutputName:  cfg.Encoder.ONNX.OutputName,
			Dimension:   cfg.Encoder.Dimension,
		})
		if err != nil {
			return Result{}, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return onnx.Close() }})
		enc = onnx
	default:
		enc = encoder.NewHTTPEncoder(cfg.Encoder.URL,
			encoder.WithTimeout(cfg.Encoder.Timeout),
			encoder.WithDimension(cfg.Encoder.Dimension))
	}
	log.Info("encoder ready", zap.String("provider", cfg.Encoder.Provider), zap.Int("dimension", enc.Dimension()))

	limiter := newLimiter(cfg.Encoder.RPS)
	return Result{
		Encoder:      encoder.NewThrottled(enc, limiter),
		IndexEncoder: enc,
		Limiter:      limiter,
	}, nil
}

// newLimiter allows short bursts of up to one second's budget; zero or
// negative rps disables limiting.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
