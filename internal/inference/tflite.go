package inference

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates/xnnpack"

	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/features"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// tfliteModel owns one interpreter. Interpreters are not safe for concurrent
// use, so every invocation holds mu.
type tfliteModel struct {
	mu          sync.Mutex
	path        string
	kind        string
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
}

func newTFLiteModel(path, kind string, threads int, useXNNPACK bool) (*tfliteModel, error) {
	start := time.Now()
	log := GetLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("inference").
			Category(errors.CategoryModelLoad).
			ModelContext(path, kind).
			Timing("model-load", time.Since(start)).
			Build()
	}

	model := tflite.NewModel(data)
	if model == nil {
		return nil, errors.New(fmt.Errorf("cannot load TensorFlow Lite model")).
			Component("inference").
			Category(errors.CategoryModelInit).
			ModelContext(path, kind).
			Context("model_size_kb", len(data)/1024).
			Timing("model-init", time.Since(start)).
			Build()
	}

	options := tflite.NewInterpreterOptions()
	if useXNNPACK {
		delegate := xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(max(1, threads-1))}) //nolint:gosec // G115: bounded by CPU count
		if delegate == nil {
			log.Warn("failed to create XNNPACK delegate, falling back to CPU", logger.String("model", kind))
			options.SetNumThread(threads)
		} else {
			options.AddDelegate(delegate)
			options.SetNumThread(1)
		}
	} else {
		options.SetNumThread(threads)
	}
	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("model", kind), logger.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, errors.New(fmt.Errorf("cannot create interpreter")).
			Component("inference").
			Category(errors.CategoryModelInit).
			ModelContext(path, kind).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return nil, errors.New(fmt.Errorf("tensor allocation failed: %v", status)).
			Component("inference").
			Category(errors.CategoryModelInit).
			ModelContext(path, kind).
			Build()
	}

	log.Debug("interpreter ready",
		logger.String("model", kind),
		logger.Int("threads", threads),
		logger.Bool("xnnpack", useXNNPACK),
		logger.Duration("elapsed", time.Since(start)))

	return &tfliteModel{
		path:        path,
		kind:        kind,
		model:       model,
		options:     options,
		interpreter: interpreter,
	}, nil
}

// run copies input into tensor 0, invokes the interpreter and returns a copy
// of output tensor 0.
func (m *tfliteModel) run(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.interpreter == nil {
		return nil, unavailable(m.kind)
	}

	inputTensor := m.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return nil, m.inferenceError(fmt.Errorf("cannot get input tensor"))
	}
	dst := inputTensor.Float32s()
	if len(dst) != len(input) {
		return nil, m.inferenceError(fmt.Errorf("input has %d values, model expects %d", len(input), len(dst)))
	}
	copy(dst, input)

	start := time.Now()
	if status := m.interpreter.Invoke(); status != tflite.OK {
		return nil, m.inferenceError(fmt.Errorf("tensor invoke failed: %v", status))
	}

	outputTensor := m.interpreter.GetOutputTensor(0)
	if outputTensor == nil {
		return nil, m.inferenceError(fmt.Errorf("cannot get output tensor"))
	}
	size := outputTensor.Dim(outputTensor.NumDims() - 1)
	out := make([]float32, size)
	copy(out, outputTensor.Float32s())

	GetLogger().Trace("model invoked",
		logger.String("model", m.kind),
		logger.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (m *tfliteModel) inferenceError(err error) error {
	return errors.New(err).
		Component("inference").
		Category(errors.CategoryInference).
		ModelContext(m.path, m.kind).
		Build()
}

// Close releases the interpreter and model.
func (m *tfliteModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interpreter != nil {
		m.interpreter.Delete()
		m.interpreter = nil
	}
	if m.options != nil {
		m.options.Delete()
		m.options = nil
	}
	if m.model != nil {
		m.model.Delete()
		m.model = nil
	}
	return nil
}

// GrowthModel is the tabular growth milestone classifier.
type GrowthModel struct {
	*tfliteModel
}

// NewGrowthModel loads the growth model at path.
func NewGrowthModel(path string, threads int, useXNNPACK bool) (*GrowthModel, error) {
	m, err := newTFLiteModel(path, "growth", threads, useXNNPACK)
	if err != nil {
		return nil, err
	}
	return &GrowthModel{m}, nil
}

// PredictGrowth returns the predicted milestone. A single output is rounded
// to the nearest label; several outputs are treated as class scores.
func (g *GrowthModel) PredictGrowth(ctx context.Context, vec features.Vector) (int, error) {
	out, err := g.run(ctx, vec.Values)
	if err != nil {
		return 0, err
	}
	return milestoneFromOutput(out)
}

func milestoneFromOutput(out []float32) (int, error) {
	switch len(out) {
	case 0:
		return 0, errors.New(fmt.Errorf("growth model returned no output")).
			Component("inference").
			Category(errors.CategoryInference).
			Build()
	case 1:
		return int(math.Round(float64(out[0]))), nil
	}
	best := 0
	for i, v := range out {
		if v > out[best] {
			best = i
		}
	}
	return best, nil
}

// DiseaseModel is the image disease classifier.
type DiseaseModel struct {
	*tfliteModel
}

// NewDiseaseModel loads the disease model at path.
func NewDiseaseModel(path string, threads int, useXNNPACK bool) (*DiseaseModel, error) {
	m, err := newTFLiteModel(path, "disease", threads, useXNNPACK)
	if err != nil {
		return nil, err
	}
	return &DiseaseModel{m}, nil
}

// PredictDisease returns one probability per known disease class.
func (d *DiseaseModel) PredictDisease(ctx context.Context, tensor []float32) ([]float32, error) {
	return d.run(ctx, tensor)
}

// threadCount resolves the interpreter thread count. Zero means one thread
// per physical core, bounded by the CPUs available to the process.
func threadCount(configured int) int {
	available := runtime.NumCPU()
	if configured > 0 {
		return min(configured, available)
	}
	if cores := cpuid.CPU.PhysicalCores; cores > 0 {
		return min(cores, available)
	}
	return available
}
