package detector

import (
	"SkinDetect/pkg/log"
	"math/rand/v2"
	"testing"

	"golang.org/x/net/context"
)

func TestSimulated_RecordsWithinBounds(t *testing.T) {
	img := encodePNG(t, 100, 100)
	catalog := SimulationCatalog()

	for seed := uint64(1); seed <= 200; seed++ {
		d := NewSimulated(log.NewNopLogger(), catalog,
			WithRand(rand.New(rand.NewPCG(seed, seed))),
		)

		batch, err := d.Detect(context.Background(), img)
		if err != nil {
			t.Fatalf("seed %d: unexpected error: %v", seed, err)
		}
		if len(batch.Detections) > 3 {
			t.Fatalf("seed %d: got %d records", seed, len(batch.Detections))
		}

		seen := map[string]bool{}
		for _, r := range batch.Detections {
			if r.Confidence < 0.65 || r.Confidence > 0.98 {
				t.Errorf("seed %d: confidence %v out of range", seed, r.Confidence)
			}
			if r.Box == nil {
				t.Fatalf("seed %d: simulated record without box", seed)
			}
			b := r.Box
			if b.X < 0 || b.Y < 0 || b.X+b.Width > 100 || b.Y+b.Height > 100 {
				t.Errorf("seed %d: box %+v outside image", seed, *b)
			}
			if b.Width < 14 || b.Width > 40 || b.Height < 14 || b.Height > 40 {
				t.Errorf("seed %d: box size %+v out of range", seed, *b)
			}
			if seen[r.Label] {
				t.Errorf("seed %d: disease %q sampled twice", seed, r.Label)
			}
			seen[r.Label] = true
		}
	}
}

func TestSimulated_ForcedDetectTwoDiseases(t *testing.T) {
	img := encodePNG(t, 100, 100)
	catalog := SimulationCatalog()
	twoSeen := false

	for seed := uint64(1); seed <= 50; seed++ {
		d := NewSimulated(log.NewNopLogger(), catalog,
			WithRand(rand.New(rand.NewPCG(seed, 7))),
			WithDetectProbability(1),
		)

		batch, err := d.Detect(context.Background(), img)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(batch.Detections) == 0 {
			t.Fatalf("seed %d: forced detection produced nothing", seed)
		}
		if len(batch.Detections) != 2 {
			continue
		}
		twoSeen = true

		for _, r := range batch.Detections {
			if r.Description == "" || r.Description != catalog.Describe(r.Label) {
				t.Errorf("record %q has description %q", r.Label, r.Description)
			}
			b := r.Box
			if b.X+b.Width > 100 || b.Y+b.Height > 100 {
				t.Errorf("box %+v outside image", *b)
			}
		}
		if batch.Best == nil || batch.Best.Confidence != batch.Detections[0].Confidence {
			t.Errorf("best is not the first detection")
		}
	}

	if !twoSeen {
		t.Fatal("no seed produced two detections")
	}
}

func TestSimulated_NeverDetect(t *testing.T) {
	d := NewSimulated(log.NewNopLogger(), SimulationCatalog(), WithDetectProbability(0))

	batch, err := d.Detect(context.Background(), encodePNG(t, 32, 32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Detections) != 0 || batch.Best != nil {
		t.Errorf("expected empty batch, got %+v", batch)
	}
}

func TestSimulated_UndecodableImageIsEmpty(t *testing.T) {
	d := NewSimulated(log.NewNopLogger(), SimulationCatalog(), WithDetectProbability(1))

	batch, err := d.Detect(context.Background(), []byte("definitely not an image"))
	if err != nil {
		t.Fatalf("simulated strategy should not fail, got %v", err)
	}
	if len(batch.Detections) != 0 || batch.Best != nil {
		t.Errorf("expected empty batch")
	}
}
