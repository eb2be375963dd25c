package detector_fx

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"petfinder/internal/config"
	"petfinder/internal/detector"
	"petfinder/internal/encoder"
	mem "petfinder/pkg/memcache"
)

const (
	analysisCacheSize = 2048
	analysisCacheTTL  = time.Hour
)

var Module = fx.Provide(provideDetector)

func provideDetector(lc fx.Lifecycle, cfg *config.Config, enc encoder.Encoder, log *zap.Logger) (detector.Detector, error) {
	var det detector.Detector
	switch cfg.Detector.Provider {
	case "gemini":
		g, err := detector.NewGemini(context.Background(), cfg.Detector.GeminiAPIKey, cfg.Detector.GeminiModel)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(g.Close))
		det = g
	case "openai":
		det = detector.NewOpenAI(cfg.Detector.OpenAIAPIKey, cfg.Detector.OpenAIModel)
	case "zeroshot":
		te, ok := encoder.AsTextEncoder(enc)
		if !ok {
			log.Warn("encoder cannot embed text, zero-shot detection disabled")
			return detector.None{}, nil
		}
		return detector.NewZeroShot(te), nil
	default:
		return detector.None{}, nil
	}
	return detector.NewCached(det, mem.NewTTL[detector.Analysis](analysisCacheSize), analysisCacheTTL), nil
}
