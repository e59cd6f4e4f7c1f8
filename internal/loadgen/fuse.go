package loadgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/okian/vibe/internal/domain/fusion"
	"github.com/okian/vibe/internal/domain/model"
)

// ErrInvalidEvent is returned for a recorded reading outside the accepted ranges.
var ErrInvalidEvent = errors.New("invalid recorded event")

var validate = validator.New()

// ReadEvents loads a JSON array of readings from path. Every reading must
// carry an emotion, a non-negative timestamp and a confidence in [0,1] when set.
func ReadEvents(path string) ([]model.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for i := range events {
		if err := validate.Struct(&events[i]); err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidEvent, path, i, err)
		}
	}
	return events, nil
}

// FuseFiles aligns the recorded gesture and context sequences and writes the
// fused readings to w as an indented JSON array.
func FuseFiles(ctx context.Context, gesturesPath, contextsPath string, w io.Writer, opts ...fusion.Option) ([]model.FusedReading, error) {
	gestures, err := ReadEvents(gesturesPath)
	if err != nil {
		return nil, err
	}
	contexts, err := ReadEvents(contextsPath)
	if err != nil {
		return nil, err
	}

	readings := fusion.New(opts...).AlignAndFuse(ctx, gestures, contexts)
	if readings == nil {
		readings = []model.FusedReading{}
	}
	data, err := json.MarshalIndent(readings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode readings: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("write readings: %w", err)
	}
	return readings, nil
}
