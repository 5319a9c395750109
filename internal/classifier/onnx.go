package classifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/rbright/baserah/internal/camera"
)

// ONNXConfig locates the model, labels and runtime library.
type ONNXConfig struct {
	ModelPath   string
	LabelsPath  string
	LibraryPath string
	InputName   string
	OutputName  string
}

var (
	ortOnce sync.Once
	ortErr  error
)

// initRuntime loads the shared library once per process.
func initRuntime(libraryPath string) error {
	ortOnce.Do(func() {
		if libraryPath = strings.TrimSpace(libraryPath); libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			ortErr = fmt.Errorf("initialize onnx runtime: %w", err)
		}
	})
	return ortErr
}

// ONNX runs a MobileNetV2-style model with one NCHW float input and one
// class-score output.
type ONNX struct {
	cfg    ONNXConfig
	labels []string

	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// NewONNX loads labels and creates an inference session.
func NewONNX(cfg ONNXConfig) (*ONNX, error) {
	if strings.TrimSpace(cfg.InputName) == "" {
		cfg.InputName = "input"
	}
	if strings.TrimSpace(cfg.OutputName) == "" {
		cfg.OutputName = "output"
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file %q: %w", cfg.ModelPath, err)
	}

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}
	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create onnx session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNX{cfg: cfg, labels: labels, session: session}, nil
}

// Labels returns the number of classes the model was loaded with.
func (o *ONNX) Labels() int {
	return len(o.labels)
}

// Classify preprocesses frame and returns the top-1 class.
func (o *ONNX) Classify(ctx context.Context, frame camera.Frame) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	input, err := Preprocess(frame.JPEG, InputSize)
	if err != nil {
		return Result{}, err
	}

	tensor, err := ort.NewTensor(ort.NewShape(1, 3, InputSize, InputSize), input)
	if err != nil {
		return Result{}, fmt.Errorf("create input tensor: %w", err)
	}
	defer tensor.Destroy()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return Result{}, errors.New("classifier is closed")
	}

	outputs := []ort.Value{nil}
	if err := o.session.Run([]ort.Value{tensor}, outputs); err != nil {
		return Result{}, fmt.Errorf("run inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	scores, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return Result{}, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	return Top1(scores.GetData(), o.labels)
}

// Close releases the inference session.
func (o *ONNX) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil {
		o.session.Destroy()
		o.session = nil
	}
}
