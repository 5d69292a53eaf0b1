package correction

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/kessler/kesslergo/internal/state"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func sampleBaseline(n int) state.Trajectory {
	traj := make(state.Trajectory, 0, n)
	for i := 0; i < n; i++ {
		traj = append(traj, state.Vector{
			T: float64(i) * 60,
			R: state.Vec3{7000 + float64(i), float64(i), 0},
			V: state.Vec3{0, 7.5, 0.1},
		})
	}
	return traj
}

func TestApplyAdditive(t *testing.T) {
	baseline := sampleBaseline(3)
	deltas := []Delta{
		{DR: state.Vec3{1, 0, 0}, DV: state.Vec3{0, 0.1, 0}},
		{DR: state.Vec3{0, 2, 0}, DV: state.Vec3{0, 0, 0.2}},
		{DR: state.Vec3{0, 0, 3}, DV: state.Vec3{0.3, 0, 0}},
	}

	corrected, err := Apply(baseline, deltas)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for i := range corrected {
		if corrected[i].T != baseline[i].T {
			t.Errorf("sample %d: T changed: %v -> %v", i, baseline[i].T, corrected[i].T)
		}
		wantR := baseline[i].R.Add(deltas[i].DR)
		if corrected[i].R != wantR {
			t.Errorf("sample %d: R = %v, want %v", i, corrected[i].R, wantR)
		}
		wantV := baseline[i].V.Add(deltas[i].DV)
		if corrected[i].V != wantV {
			t.Errorf("sample %d: V = %v, want %v", i, corrected[i].V, wantV)
		}
	}
}

func TestApplyLengthMismatch(t *testing.T) {
	baseline := sampleBaseline(3)
	if _, err := Apply(baseline, make([]Delta, 2)); err == nil {
		t.Fatal("expected error for short delta sequence")
	}
	if _, err := Apply(baseline, make([]Delta, 4)); err == nil {
		t.Fatal("expected error for long delta sequence")
	}
}

// writeCheckpoint marshals a checkpoint to a temp file.
func writeCheckpoint(t *testing.T, ck checkpoint) string {
	t.Helper()
	data, err := json.Marshal(ck)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// scaledIdentity builds a single linear 6→6 layer computing s·x.
func scaledIdentity(s float64) checkpoint {
	l := layer{Activation: "linear"}
	for i := 0; i < stateDim; i++ {
		row := make([]float64, stateDim)
		row[i] = s
		l.Weights = append(l.Weights, row)
		l.Bias = append(l.Bias, 0)
	}
	return checkpoint{Layers: []layer{l}}
}

func TestLoadMLPAndCorrect(t *testing.T) {
	path := writeCheckpoint(t, scaledIdentity(0.1))
	mlp, err := LoadMLP(path)
	if err != nil {
		t.Fatalf("LoadMLP failed: %v", err)
	}

	baseline := sampleBaseline(5)
	deltas, err := mlp.Correct(baseline)
	if err != nil {
		t.Fatalf("Correct failed: %v", err)
	}
	if len(deltas) != len(baseline) {
		t.Fatalf("got %d deltas for %d samples", len(deltas), len(baseline))
	}

	// The scaled-identity checkpoint emits 0.1·(r, v) as the delta.
	for i, d := range deltas {
		wantDR := baseline[i].R.Scale(0.1)
		if diff := d.DR.Sub(wantDR).Norm(); diff > 1e-12 {
			t.Errorf("sample %d: DR = %v, want %v", i, d.DR, wantDR)
		}
		wantDV := baseline[i].V.Scale(0.1)
		if diff := d.DV.Sub(wantDV).Norm(); diff > 1e-12 {
			t.Errorf("sample %d: DV = %v, want %v", i, d.DV, wantDV)
		}
	}
}

func TestLoadMLPRejectsBadDimensions(t *testing.T) {
	bad := scaledIdentity(1)
	bad.Layers[0].Weights = bad.Layers[0].Weights[:4] // 6→4 head
	bad.Layers[0].Bias = bad.Layers[0].Bias[:4]

	if _, err := LoadMLP(writeCheckpoint(t, bad)); err == nil {
		t.Fatal("expected error for mismatched final width")
	}
}

func TestLoadMLPRejectsUnknownActivation(t *testing.T) {
	bad := scaledIdentity(1)
	bad.Layers[0].Activation = "relu"
	if _, err := LoadMLP(writeCheckpoint(t, bad)); err == nil {
		t.Fatal("expected error for unsupported activation")
	}
}

func TestMLPTanhForward(t *testing.T) {
	// tanh hidden layer followed by a linear head, both scaled identity.
	hidden := scaledIdentity(1).Layers[0]
	hidden.Activation = "tanh"
	head := scaledIdentity(2).Layers[0]
	ck := checkpoint{Layers: []layer{hidden, head}}

	mlp, err := LoadMLP(writeCheckpoint(t, ck))
	if err != nil {
		t.Fatal(err)
	}

	out := mlp.forward([]float64{0.5, 0, 0, 0, 0, 0})
	if want := 2 * math.Tanh(0.5); math.Abs(out[0]-want) > 1e-12 {
		t.Errorf("forward[0] = %v, want %v", out[0], want)
	}
	for i := 1; i < stateDim; i++ {
		if out[i] != 0 {
			t.Errorf("forward[%d] = %v, want 0", i, out[i])
		}
	}
}

func TestProviderMissingCheckpointIsNormal(t *testing.T) {
	p, err := NewProvider(filepath.Join(t.TempDir(), "absent.json"), testLogger)
	if err != nil {
		t.Fatalf("missing checkpoint must not error: %v", err)
	}
	if p.Available() {
		t.Error("Available() = true with no checkpoint")
	}
}

func TestProviderBrokenCheckpointErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewProvider(path, testLogger); err == nil {
		t.Fatal("expected error for present-but-broken checkpoint")
	}
}

func TestRefineFallbackIsBitIdenticalBaseline(t *testing.T) {
	p, err := NewProvider("", testLogger)
	if err != nil {
		t.Fatal(err)
	}

	baseline := sampleBaseline(10)
	got, source, err := p.Refine(baseline, true)
	if err != nil {
		t.Fatalf("Refine with fallback failed: %v", err)
	}
	if source != SourceBaseline {
		t.Errorf("source = %q, want %q", source, SourceBaseline)
	}
	for i := range baseline {
		if got[i] != baseline[i] {
			t.Fatalf("sample %d differs from baseline: %+v vs %+v", i, got[i], baseline[i])
		}
	}
}

func TestRefineSurfacesUnavailable(t *testing.T) {
	p, err := NewProvider("", testLogger)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = p.Refine(sampleBaseline(10), false)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRefineWithModel(t *testing.T) {
	path := writeCheckpoint(t, scaledIdentity(0.01))
	p, err := NewProvider(path, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Available() {
		t.Fatal("model should be loaded")
	}

	baseline := sampleBaseline(5)
	got, source, err := p.Refine(baseline, false)
	if err != nil {
		t.Fatalf("Refine failed: %v", err)
	}
	if source != SourceModel {
		t.Errorf("source = %q, want %q", source, SourceModel)
	}
	// Corrected position = 1.01·baseline position.
	for i := range baseline {
		want := baseline[i].R.Scale(1.01)
		if diff := got[i].R.Sub(want).Norm(); diff > 1e-9 {
			t.Errorf("sample %d: R = %v, want %v", i, got[i].R, want)
		}
		if got[i].T != baseline[i].T {
			t.Errorf("sample %d: timestamp changed", i)
		}
	}
}
