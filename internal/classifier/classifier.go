// Package classifier labels camera frames with an image classification model.
package classifier

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rbright/baserah/internal/camera"
)

// Result is one inference outcome. Confidence is nil when the model does not
// report one.
type Result struct {
	Label      string
	Confidence *float32
}

// Classifier labels a single frame.
type Classifier interface {
	Classify(ctx context.Context, frame camera.Frame) (Result, error)
}

// Func adapts a function to Classifier.
type Func func(ctx context.Context, frame camera.Frame) (Result, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, frame camera.Frame) (Result, error) {
	return f(ctx, frame)
}

// LoadLabels reads one class label per line. Blank lines are kept so line
// numbers match output indices; a trailing newline is ignored.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels %q: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %q is empty", path)
	}
	return labels, nil
}

// Top1 picks the highest scoring class. Raw logits are converted with softmax;
// scores that already form a probability distribution are used as is.
func Top1(scores []float32, labels []string) (Result, error) {
	if len(scores) == 0 {
		return Result{}, errors.New("model returned no scores")
	}
	if len(labels) != len(scores) {
		return Result{}, fmt.Errorf("model returned %d scores for %d labels", len(scores), len(labels))
	}

	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}

	probs := scores
	if !isDistribution(scores) {
		probs = softmax(scores)
	}
	confidence := probs[best]
	return Result{Label: labels[best], Confidence: &confidence}, nil
}

func isDistribution(scores []float32) bool {
	var sum float64
	for _, s := range scores {
		if s < 0 || s > 1 {
			return false
		}
		sum += float64(s)
	}
	return math.Abs(sum-1) < 1e-3
}

func softmax(scores []float32) []float32 {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		maxScore = max(maxScore, s)
	}
	out := make([]float32, len(scores))
	var sum float64
	for i, s := range scores {
		e := math.Exp(float64(s - maxScore))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
