package encoder

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

type ONNXConfig struct {
	ModelPath   string
	LibraryPath string
	InputName   string
	OutputName  string
	Dimension   int
	ImageSize   int
}

// ONNXEncoder runs a CLIP visual tower locally. One session is shared and
// calls are serialised on it.
type ONNXEncoder struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	size    int
	dim     int
}

var initOnce sync.Once
var initErr error

func NewONNXEncoder(cfg ONNXConfig) (*ONNXEncoder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("encoder: onnx model path is required")
	}
	if cfg.InputName == "" {
		cfg.InputName = "pixel_values"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "image_embeds"
	}
	if cfg.ImageSize <= 0 {
		cfg.ImageSize = ClipImageSize
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 512
	}

	initOnce.Do(func() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		if !ort.IsInitialized() {
			initErr = ort.InitializeEnvironment()
		}
	})
	if initErr != nil {
		return nil, fmt.Errorf("encoder: init onnxruntime: %w", initErr)
	}

	size := int64(cfg.ImageSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("encoder: input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.Dimension)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("encoder: output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("encoder: create session: %w", err)
	}

	return &ONNXEncoder{
		session: session,
		input:   input,
		output:  output,
		size:    cfg.ImageSize,
		dim:     cfg.Dimension,
	}, nil
}

func (e *ONNXEncoder) Dimension() int { return e.dim }

func (e *ONNXEncoder) Embed(ctx context.Context, img Image) (Vector, error) {
	n, err := Normalize(img)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, classifyCtxErr(err)
	}
	pixels := Preprocess(n.Image, e.size)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("%w: session closed", ErrUnavailable)
	}
	copy(e.input.GetData(), pixels)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: run: %v", ErrUnavailable, err)
	}
	return Unit(e.output.GetData())
}

func (e *ONNXEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.input.Destroy()
	e.output.Destroy()
	e.session = nil
	return err
}
