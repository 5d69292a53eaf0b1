package correction

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/kessler/kesslergo/internal/metrics"
	"github.com/kessler/kesslergo/internal/state"
)

// Source tags the provenance of a refined trajectory.
type Source string

const (
	// SourceModel marks a trajectory refined by the loaded model.
	SourceModel Source = "model"
	// SourceBaseline marks an unmodified baseline used as fallback.
	SourceBaseline Source = "baseline"
)

// Provider owns the optional correction model. A missing checkpoint is a
// normal, expected state: the service assesses risk on baselines alone
// until a trained artifact appears.
type Provider struct {
	path   string
	logger *slog.Logger
	model  atomic.Pointer[MLP]
}

// NewProvider creates a Provider for the given checkpoint path and
// attempts an initial load. Absence of the file is logged at info and is
// not an error; a present-but-broken checkpoint is.
func NewProvider(path string, logger *slog.Logger) (*Provider, error) {
	p := &Provider{path: path, logger: logger}
	if path == "" {
		logger.Info("no correction checkpoint configured, running baseline-only")
		return p, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("correction checkpoint not found, running baseline-only", "path", path)
		return p, nil
	}

	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the checkpoint, picking up a newly trained artifact
// without a restart.
func (p *Provider) Reload() error {
	mlp, err := LoadMLP(p.path)
	if err != nil {
		return fmt.Errorf("loading correction model: %w", err)
	}
	p.model.Store(mlp)
	p.logger.Info("correction model loaded", "path", p.path, "layers", len(mlp.layers))
	return nil
}

// Available reports whether a model is loaded.
func (p *Provider) Available() bool {
	return p.model.Load() != nil
}

// Refine applies the correction model to baseline. When the model is
// unavailable (not loaded, inference failed, or the delta sequence
// violated the length contract), behavior follows the fallback flag:
// return the baseline unmodified tagged SourceBaseline, or surface
// ErrUnavailable. Refinement failures never corrupt the baseline; risk
// assessment stays available even when the correction layer misbehaves.
func (p *Provider) Refine(baseline state.Trajectory, fallback bool) (state.Trajectory, Source, error) {
	corrected, err := p.refine(baseline)
	if err == nil {
		metrics.RecordCorrection(string(SourceModel))
		return corrected, SourceModel, nil
	}

	if fallback {
		p.logger.Debug("falling back to baseline trajectory", "reason", err)
		metrics.RecordCorrection(string(SourceBaseline))
		return baseline, SourceBaseline, nil
	}
	return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (p *Provider) refine(baseline state.Trajectory) (state.Trajectory, error) {
	mlp := p.model.Load()
	if mlp == nil {
		return nil, fmt.Errorf("no model loaded")
	}

	deltas, err := mlp.Correct(baseline)
	if err != nil {
		p.logger.Warn("correction inference failed", "error", err)
		return nil, err
	}

	corrected, err := Apply(baseline, deltas)
	if err != nil {
		// Length contract violation: treat as unavailable rather than
		// truncating or padding.
		p.logger.Warn("correction contract violation", "error", err)
		return nil, err
	}
	return corrected, nil
}
