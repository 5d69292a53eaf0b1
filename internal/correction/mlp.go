package correction

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/kessler/kesslergo/internal/state"
)

// stateDim is the per-sample feature width: position and velocity
// concatenated. The delta head has the same width.
const stateDim = 6

// layer is one dense layer of the exported network. Weights are stored
// row-major, one row per output unit.
type layer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"` // "tanh" or "linear"
}

// checkpoint is the JSON artifact the external trainer exports: the
// encoder/head stack of the physics-constrained correction network.
type checkpoint struct {
	Layers []layer `json:"layers"`
}

// MLP is a feed-forward correction model evaluated sample by sample:
// each (r, v) pair maps to a (Δr, Δv) delta. Inference only; training
// lives outside this service.
type MLP struct {
	layers []layer
}

// LoadMLP reads and validates a checkpoint file.
func LoadMLP(path string) (*MLP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	var ck checkpoint
	if err := json.Unmarshal(data, &ck); err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %w", err)
	}
	if err := ck.validate(); err != nil {
		return nil, fmt.Errorf("invalid checkpoint %s: %w", path, err)
	}

	return &MLP{layers: ck.Layers}, nil
}

// validate checks layer dimensions chain correctly from stateDim back to
// stateDim.
func (ck checkpoint) validate() error {
	if len(ck.Layers) == 0 {
		return fmt.Errorf("no layers")
	}

	in := stateDim
	for i, l := range ck.Layers {
		if len(l.Weights) == 0 {
			return fmt.Errorf("layer %d: empty weights", i)
		}
		for j, row := range l.Weights {
			if len(row) != in {
				return fmt.Errorf("layer %d row %d: width %d, expected %d", i, j, len(row), in)
			}
		}
		if len(l.Bias) != len(l.Weights) {
			return fmt.Errorf("layer %d: bias length %d, expected %d", i, len(l.Bias), len(l.Weights))
		}
		switch l.Activation {
		case "tanh", "linear", "":
		default:
			return fmt.Errorf("layer %d: unsupported activation %q", i, l.Activation)
		}
		in = len(l.Weights)
	}
	if in != stateDim {
		return fmt.Errorf("final layer width %d, expected %d", in, stateDim)
	}
	return nil
}

// Correct runs the network over every baseline sample.
func (m *MLP) Correct(baseline state.Trajectory) ([]Delta, error) {
	deltas := make([]Delta, len(baseline))
	x := make([]float64, stateDim)

	for i, sv := range baseline {
		x[0], x[1], x[2] = sv.R[0], sv.R[1], sv.R[2]
		x[3], x[4], x[5] = sv.V[0], sv.V[1], sv.V[2]

		out := m.forward(x)
		for _, o := range out {
			if math.IsNaN(o) || math.IsInf(o, 0) {
				return nil, fmt.Errorf("non-finite delta at sample %d", i)
			}
		}
		deltas[i] = Delta{
			DR: state.Vec3{out[0], out[1], out[2]},
			DV: state.Vec3{out[3], out[4], out[5]},
		}
	}
	return deltas, nil
}

// forward evaluates the dense stack for a single feature vector.
func (m *MLP) forward(x []float64) []float64 {
	cur := x
	for _, l := range m.layers {
		next := make([]float64, len(l.Weights))
		for j, row := range l.Weights {
			sum := l.Bias[j]
			for k, w := range row {
				sum += w * cur[k]
			}
			if l.Activation == "tanh" {
				sum = math.Tanh(sum)
			}
			next[j] = sum
		}
		cur = next
	}
	return cur
}
