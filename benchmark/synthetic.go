package benchmark

import (
	"context"
	"math/rand"

	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/models/yolo"
)

// duplicatesPerObject is how many overlapping records each synthetic object produces.
const duplicatesPerObject = 4

// SyntheticEngine returns a fixed, generated YOLO output for every frame.
//
// Objects are emitted as clusters of overlapping high-confidence records so that NMS has
// work to do; the remaining records are background with low objectness.
type SyntheticEngine struct {
	output yolo.RawOutput
}

// NewSyntheticEngine generates an output with candidates records and objects clusters.
//
// Arguments:
//   - config: The decoder configuration the output must match.
//   - candidates: The total number of records.
//   - objects: The number of objects; each uses duplicatesPerObject records.
//   - layout: The output layout.
//   - seed: The generator seed.
//
// Returns:
//   - *SyntheticEngine: The engine.
func NewSyntheticEngine(config yolo.Config, candidates, objects int, layout yolo.Layout, seed int64) *SyntheticEngine {
	rng := rand.New(rand.NewSource(seed))
	stride := config.Stride()
	if objects*duplicatesPerObject > candidates {
		objects = candidates / duplicatesPerObject
	}

	class := 0
	if len(config.TargetClasses) > 0 {
		class = config.TargetClasses[0]
	}

	w, h := float32(config.InputWidth), float32(config.InputHeight)
	records := make([]float32, candidates*stride)
	for i := 0; i < candidates; i++ {
		r := records[i*stride : (i+1)*stride]

		if obj := i / duplicatesPerObject; obj < objects {
			// Every duplicate starts from the same generator state for its object.
			objRng := rand.New(rand.NewSource(seed + int64(obj)))
			bw := 20 + objRng.Float32()*w/4
			bh := 40 + objRng.Float32()*h/3
			cx := bw/2 + objRng.Float32()*(w-bw)
			cy := bh/2 + objRng.Float32()*(h-bh)
			jitter := float32(i % duplicatesPerObject)
			r[0], r[1], r[2], r[3] = cx+jitter, cy+jitter, bw, bh
			r[yolo.BoxFields] = 0.9 - float32(i%duplicatesPerObject)*0.05
			r[yolo.RecordHeader+class] = 0.95
			continue
		}

		r[0], r[1] = rng.Float32()*w, rng.Float32()*h
		r[2], r[3] = 10+rng.Float32()*50, 10+rng.Float32()*50
		r[yolo.BoxFields] = rng.Float32() * 0.2
		for c := 0; c < config.NumClasses; c++ {
			r[yolo.RecordHeader+c] = rng.Float32() * 0.3
		}
	}

	output := yolo.RawOutput{Data: records, Shape: []int{1, candidates, stride}}
	if layout == yolo.LayoutPlanar {
		planar := make([]float32, len(records))
		for i := 0; i < candidates; i++ {
			for f := 0; f < stride; f++ {
				planar[f*candidates+i] = records[i*stride+f]
			}
		}
		output = yolo.RawOutput{Data: planar, Shape: []int{1, stride, candidates}}
	}
	return &SyntheticEngine{output: output}
}

// Output returns the generated output without copying.
func (e *SyntheticEngine) Output() yolo.RawOutput {
	return e.output
}

// Infer returns a copy of the generated output.
func (e *SyntheticEngine) Infer(ctx context.Context, _ inference.Tensor) (yolo.RawOutput, error) {
	if err := ctx.Err(); err != nil {
		return yolo.RawOutput{}, err
	}
	return yolo.RawOutput{
		Data:  append([]float32(nil), e.output.Data...),
		Shape: append([]int(nil), e.output.Shape...),
	}, nil
}

// Close implements inference.Engine.
func (e *SyntheticEngine) Close() error {
	return nil
}
