package ai

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"pantryscan/internal/config"
	"pantryscan/internal/logger"
	"pantryscan/internal/model"
)

// Output layouts understood by the classifier.
const (
	// OutputClassification is one score per label, in label order.
	OutputClassification = "classification"
	// OutputSSD is rows of [batch_id, class_id, confidence, x1, y1, x2, y2].
	OutputSSD = "ssd"
)

// Classifier runs a gocv DNN over JPEG frames. gocv.Net is not safe for
// concurrent use, so Classify calls are serialized.
type Classifier struct {
	mu        sync.Mutex
	net       gocv.Net
	labels    []string
	output    string
	inputSize int
	logger    *logger.Logger
}

// NewClassifier loads the model and labels named in cfg.
func NewClassifier(cfg *config.Config, logger *logger.Logger) (*Classifier, error) {
	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", cfg.ModelPath)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	output := cfg.ModelOutput
	if output != OutputSSD {
		output = OutputClassification
	}

	logger.Info("Classification network loaded: %s (%d labels, %s output)", cfg.ModelPath, len(labels), output)
	return &Classifier{
		net:       net,
		labels:    labels,
		output:    output,
		inputSize: cfg.ModelInputSize,
		logger:    logger,
	}, nil
}

// Classify decodes the frame, runs the network and returns every labelled
// result in model order.
func (c *Classifier) Classify(ctx context.Context, frame model.Frame) ([]model.Classification, error) {
	mat, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var blob gocv.Mat
	if c.output == OutputSSD {
		blob = gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(c.inputSize, c.inputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	} else {
		blob = gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(c.inputSize, c.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	}
	defer blob.Close()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()

	values, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read network output: %w", err)
	}

	if c.output == OutputSSD {
		return DecodeDetections(values, c.labels), nil
	}
	return DecodeScores(values, c.labels), nil
}

// Close releases the network.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}

// LoadLabels reads one label per line. Line n names class n, so blank lines
// are kept as unlabelled classes.
func LoadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer file.Close()

	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

// DecodeScores maps a score vector onto labels. Raw logits, i.e. any value
// outside [0,1], are turned into probabilities with softmax first.
func DecodeScores(scores []float32, labels []string) []model.Classification {
	probs := make([]float64, len(scores))
	needSoftmax := false
	for i, s := range scores {
		probs[i] = float64(s)
		if s < 0 || s > 1 {
			needSoftmax = true
		}
	}
	if needSoftmax {
		softmax(probs)
	}

	results := make([]model.Classification, 0, len(probs))
	for i, p := range probs {
		if i >= len(labels) || labels[i] == "" {
			continue
		}
		results = append(results, model.Classification{Label: labels[i], Confidence: p})
	}
	return results
}

// DecodeDetections reads SSD rows and keeps one result per row whose class
// has a label.
func DecodeDetections(values []float32, labels []string) []model.Classification {
	var results []model.Classification
	for row := 0; row+7 <= len(values); row += 7 {
		classID := int(values[row+1])
		if classID < 0 || classID >= len(labels) || labels[classID] == "" {
			continue
		}
		results = append(results, model.Classification{
			Label:      labels[classID],
			Confidence: float64(values[row+2]),
		})
	}
	return results
}

func softmax(xs []float64) {
	if len(xs) == 0 {
		return
	}
	hi := xs[0]
	for _, x := range xs[1:] {
		hi = math.Max(hi, x)
	}
	var sum float64
	for i, x := range xs {
		xs[i] = math.Exp(x - hi)
		sum += xs[i]
	}
	for i := range xs {
		xs[i] /= sum
	}
}
