package neural

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	tflite "github.com/tphakala/go-tflite"

	"dnamatcher/imaging"
	"dnamatcher/logging"
	"dnamatcher/types"
)

// ErrUnavailable is returned when the backing models could not be loaded.
// Callers omit the neural dimension from scoring; they never treat this as
// zero similarity.
var ErrUnavailable = errors.New("neural model unavailable")

// InputSize is the side length of the square RGB input both models expect.
const InputSize = 224

// EmbeddingResult is the full output of one inference pass.
type EmbeddingResult struct {
	Embedding        []float32
	EmbeddingHash    string
	EntityType       types.EntityType
	EntityConfidence float64
	Labels           []string
}

// Provider wraps a pretrained TFLite vision encoder plus an optional
// zero-shot entity classifier. Initialization is lazy and happens at most
// once per process: concurrent first callers share the same in-flight load
// through sync.Once rather than triggering duplicate model loads.
type Provider struct {
	encoderPath    string
	classifierPath string
	labelsPath     string

	once    sync.Once
	initErr error

	encoder    *tflite.Interpreter
	classifier *tflite.Interpreter
	labels     []string

	// TFLite interpreters are not safe for concurrent Invoke on the same
	// instance; inference is serialized while callers stay concurrent.
	mu sync.Mutex
}

// NewProvider configures a provider. Nothing is loaded until first use.
// classifierPath and labelsPath may be empty; the provider then produces
// embeddings without entity classification.
func NewProvider(encoderPath, classifierPath, labelsPath string) *Provider {
	return &Provider{
		encoderPath:    encoderPath,
		classifierPath: classifierPath,
		labelsPath:     labelsPath,
	}
}

// Available reports whether the models loaded (or can load) successfully.
func (p *Provider) Available() bool {
	return p.ensureLoaded() == nil
}

// ensureLoaded performs the one-time initialization and returns the shared
// load result.
func (p *Provider) ensureLoaded() error {
	p.once.Do(func() {
		if p.encoderPath == "" {
			p.initErr = fmt.Errorf("%w: no encoder model configured", ErrUnavailable)
			return
		}

		encoder, err := loadInterpreter(p.encoderPath)
		if err != nil {
			p.initErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			logging.Warn("neural encoder unavailable", "path", p.encoderPath, "error", err)
			return
		}
		p.encoder = encoder

		if p.classifierPath != "" && p.labelsPath != "" {
			classifier, err := loadInterpreter(p.classifierPath)
			if err != nil {
				logging.Warn("entity classifier unavailable, continuing without it",
					"path", p.classifierPath, "error", err)
			} else if labels, err := loadLabels(p.labelsPath); err != nil {
				logging.Warn("entity labels unavailable, continuing without classifier",
					"path", p.labelsPath, "error", err)
			} else {
				p.classifier = classifier
				p.labels = labels
			}
		}

		logging.Info("neural models loaded",
			"encoder", p.encoderPath, "classifier", p.classifier != nil)
	})
	return p.initErr
}

// Process runs the encoder (and classifier when loaded) over the working
// RGB buffer and returns the embedding, its index digest and the entity
// classification.
func (p *Provider) Process(rgb *imaging.RGB) (*EmbeddingResult, error) {
	if err := p.ensureLoaded(); err != nil {
		return nil, err
	}
	if rgb == nil || len(rgb.Pix) == 0 {
		return nil, fmt.Errorf("cannot embed empty buffer")
	}

	input := prepareInput(rgb)

	p.mu.Lock()
	defer p.mu.Unlock()

	embedding, err := p.invoke(p.encoder, input)
	if err != nil {
		return nil, fmt.Errorf("encoder inference: %w", err)
	}
	l2Normalize(embedding)

	result := &EmbeddingResult{
		Embedding:     embedding,
		EmbeddingHash: EmbeddingDigest(embedding),
		EntityType:    types.EntityUnknown,
	}

	if p.classifier != nil {
		scores, err := p.invoke(p.classifier, input)
		if err != nil {
			logging.Warn("entity classification failed", "error", err)
			return result, nil
		}
		result.EntityType, result.EntityConfidence, result.Labels = classifyEntity(p.labels, scores)
	}

	return result, nil
}

// invoke copies the input into tensor 0, runs the interpreter and returns a
// copy of output tensor 0.
func (p *Provider) invoke(interpreter *tflite.Interpreter, input []float32) ([]float32, error) {
	in := interpreter.GetInputTensor(0)
	if in == nil {
		return nil, fmt.Errorf("cannot get input tensor")
	}
	copy(in.Float32s(), input)

	if status := interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed")
	}

	out := interpreter.GetOutputTensor(0)
	if out == nil {
		return nil, fmt.Errorf("cannot get output tensor")
	}
	size := out.Dim(out.NumDims() - 1)
	result := make([]float32, size)
	copy(result, out.Float32s())
	return result, nil
}

// prepareInput scales the buffer to the model input size and normalizes
// pixels to [0, 1] in RGB channel order.
func prepareInput(rgb *imaging.RGB) []float32 {
	scaled := rgb.Scaled(InputSize, InputSize)
	input := make([]float32, len(scaled.Pix))
	for i, v := range scaled.Pix {
		input[i] = float32(v) / 255.0
	}
	return input
}

// loadInterpreter loads a TFLite model file and allocates its tensors.
func loadInterpreter(path string) (*tflite.Interpreter, error) {
	model := tflite.NewModelFromFile(path)
	if model == nil {
		return nil, fmt.Errorf("cannot load model from path: %s", path)
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(runtime.NumCPU())
	options.SetErrorReporter(func(msg string, userData interface{}) {
		logging.Error("tflite error", "message", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		return nil, fmt.Errorf("cannot create interpreter for %s", path)
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		return nil, fmt.Errorf("tensor allocation failed for %s", path)
	}
	return interpreter, nil
}

// loadLabels reads one label per line.
func loadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label file %s is empty", path)
	}
	return labels, nil
}
