package yolo

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// record builds one interleaved record with every class score set to base and the
// given overrides applied.
func record(numClasses int, cx, cy, w, h, objectness, base float32, scores map[int]float32) []float32 {
	r := make([]float32, RecordHeader+numClasses)
	r[0], r[1], r[2], r[3], r[4] = cx, cy, w, h, objectness
	for i := 0; i < numClasses; i++ {
		r[RecordHeader+i] = base
	}
	for id, s := range scores {
		r[RecordHeader+id] = s
	}
	return r
}

// interleaved concatenates records into a [1, count, stride] output.
func interleaved(records ...[]float32) RawOutput {
	stride := len(records[0])
	data := make([]float32, 0, stride*len(records))
	for _, r := range records {
		data = append(data, r...)
	}
	return RawOutput{Data: data, Shape: []int{1, len(records), stride}}
}

// planar lays the same records out as [1, stride, count].
func planar(records ...[]float32) RawOutput {
	stride := len(records[0])
	count := len(records)
	data := make([]float32, stride*count)
	for i, r := range records {
		for f, v := range r {
			data[f*count+i] = v
		}
	}
	return RawOutput{Data: data, Shape: []int{1, stride, count}}
}

func smallConfig() Config {
	c := DefaultConfig()
	c.NumClasses = 3
	c.TargetClasses = nil
	return c
}

func mustDecoder(t testing.TB, c Config) *Decoder {
	t.Helper()
	d, err := NewDecoder(c)
	require.NoError(t, err)
	return d
}

func TestDecode_EndToEnd(t *testing.T) {
	d := mustDecoder(t, DefaultConfig())
	out := interleaved(record(80, 320, 240, 100, 200, 0.9, 0.1, map[int]float32{0: 0.8}))

	detections, err := d.Decode(out, 480, 480)
	require.NoError(t, err)
	require.Len(t, detections, 1)

	det := detections[0]
	assert.Equal(t, 0, det.Class)
	assert.InDelta(t, 0.72, det.Score, 1e-6)
	// scale = 480 / 640 = 0.75
	assert.InDelta(t, 320*0.75-75.0/2, det.Box.X, 1e-4)
	assert.InDelta(t, 240*0.75-150.0/2, det.Box.Y, 1e-4)
	assert.InDelta(t, 75, det.Box.Width, 1e-4)
	assert.InDelta(t, 150, det.Box.Height, 1e-4)
}

func TestDecode_MalformedOutput(t *testing.T) {
	d := mustDecoder(t, DefaultConfig())

	tests := []struct {
		name string
		out  RawOutput
	}{
		{"Not a multiple of stride", RawOutput{Data: make([]float32, 83), Shape: []int{1, 83}}},
		{"Flat buffer without shape", RawOutput{Data: make([]float32, 83)}},
		{"Shape disagrees with buffer", RawOutput{Data: make([]float32, 85), Shape: []int{1, 85, 2}}},
		{"Negative dimension", RawOutput{Data: make([]float32, 85), Shape: []int{-1, 85}}},
		{"Shape product overflows", RawOutput{Data: make([]float32, 85), Shape: []int{1, math.MaxInt/4 + 1, 85}}},
		{"Wrapped shape product", RawOutput{Data: make([]float32, 12), Shape: []int{1, math.MaxInt/12 + 2, 12}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detections, err := d.Decode(tt.out, 640, 480)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedOutput), "got %v", err)
			assert.Empty(t, detections)
		})
	}
}

func TestDecode_UnsupportedLayout(t *testing.T) {
	d := mustDecoder(t, DefaultConfig())

	tests := []struct {
		name string
		out  RawOutput
	}{
		{"Neither dim is the stride", RawOutput{Data: make([]float32, 170), Shape: []int{10, 17}}},
		{"Too many dims", RawOutput{Data: make([]float32, 170), Shape: []int{1, 2, 1, 85}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detections, err := d.Decode(tt.out, 640, 480)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupportedLayout), "got %v", err)
			assert.Empty(t, detections)
		})
	}
}

func TestDecode_EmptyIsNotAnError(t *testing.T) {
	d := mustDecoder(t, DefaultConfig())

	tests := []struct {
		name string
		out  RawOutput
	}{
		{"No interleaved records", RawOutput{Data: []float32{}, Shape: []int{1, 0, 85}}},
		{"No planar records", RawOutput{Data: []float32{}, Shape: []int{1, 85, 0}}},
		{"Empty flat buffer", RawOutput{Data: []float32{}}},
		{"Background only", interleaved(record(80, 100, 100, 50, 50, 0.01, 0.9, nil))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detections, err := d.Decode(tt.out, 640, 480)
			require.NoError(t, err)
			assert.NotNil(t, detections)
			assert.Empty(t, detections)
		})
	}
}

func TestDetectLayout_RecordCountMismatch(t *testing.T) {
	// The shape declares two records but the buffer holds one.
	out := RawOutput{Data: make([]float32, 12), Shape: []int{1, 2, 12}}

	_, _, err := DetectLayout(out, 12)
	assert.True(t, errors.Is(err, ErrMalformedOutput), "got %v", err)

	_, err = NewRecords(out, 12)
	assert.True(t, errors.Is(err, ErrMalformedOutput), "got %v", err)

	layout, count, err := DetectLayout(RawOutput{Data: make([]float32, 24), Shape: []int{1, 12, 2}}, 12)
	require.NoError(t, err)
	assert.Equal(t, LayoutPlanar, layout)
	assert.Equal(t, 2, count)
}

func TestDecode_InvalidFrame(t *testing.T) {
	d := mustDecoder(t, DefaultConfig())
	out := interleaved(record(80, 320, 240, 100, 200, 0.9, 0.1, map[int]float32{0: 0.8}))

	_, err := d.Decode(out, 0, 480)
	assert.True(t, errors.Is(err, ErrInvalidFrame))
}

func TestDecode_PlanarMatchesInterleaved(t *testing.T) {
	c := smallConfig()
	d := mustDecoder(t, c)
	records := [][]float32{
		record(3, 100, 100, 40, 80, 0.9, 0.1, map[int]float32{0: 0.9}),
		record(3, 400, 300, 60, 60, 0.8, 0.1, map[int]float32{2: 0.95}),
		record(3, 500, 100, 20, 20, 0.1, 0.9, nil),
		record(3, 102, 101, 40, 80, 0.7, 0.1, map[int]float32{0: 0.9}),
	}

	fromInterleaved, err := d.Decode(interleaved(records...), 640, 480)
	require.NoError(t, err)

	planarOut := planar(records...)
	before := append([]float32(nil), planarOut.Data...)
	fromPlanar, err := d.Decode(planarOut, 640, 480)
	require.NoError(t, err)

	assert.Equal(t, fromInterleaved, fromPlanar)
	assert.Len(t, fromPlanar, 2)
	assert.Equal(t, before, planarOut.Data, "planar input must not be modified")
}

func TestDecode_CoordinateRoundTrip(t *testing.T) {
	c := smallConfig()
	c.InputWidth, c.InputHeight = 640, 480
	d := mustDecoder(t, c)

	cx, cy, w, h := float32(300), float32(200), float32(64), float32(32)
	out := interleaved(record(3, cx, cy, w, h, 0.9, 0.1, map[int]float32{1: 0.9}))

	detections, err := d.Decode(out, 640, 480)
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, images.Rect{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}, detections[0].Box)
}

func TestDecode_NonUniformScale(t *testing.T) {
	c := smallConfig()
	d := mustDecoder(t, c)
	out := interleaved(record(3, 320, 320, 64, 64, 0.9, 0.1, map[int]float32{0: 0.9}))

	detections, err := d.Decode(out, 1280, 320)
	require.NoError(t, err)
	require.Len(t, detections, 1)
	// scaleX = 2, scaleY = 0.5
	assert.Equal(t, images.Rect{X: 576, Y: 144, Width: 128, Height: 32}, detections[0].Box)
}

func TestDecode_Clamping(t *testing.T) {
	c := smallConfig()
	c.InputWidth, c.InputHeight = 640, 480
	d := mustDecoder(t, c)

	tests := []struct {
		name   string
		record []float32
		want   images.Rect
		kept   bool
	}{
		{
			name:   "Straddles top-left corner",
			record: record(3, 10, 10, 40, 40, 0.9, 0.1, map[int]float32{0: 0.9}),
			want:   images.Rect{X: 0, Y: 0, Width: 40, Height: 40},
			kept:   true,
		},
		{
			name:   "Straddles bottom-right corner",
			record: record(3, 630, 470, 40, 40, 0.9, 0.1, map[int]float32{0: 0.9}),
			want:   images.Rect{X: 610, Y: 450, Width: 30, Height: 30},
			kept:   true,
		},
		{
			name:   "Entirely right of frame",
			record: record(3, 700, 100, 40, 40, 0.9, 0.1, map[int]float32{0: 0.9}),
			kept:   false,
		},
		{
			name:   "Zero width",
			record: record(3, 100, 100, 0, 40, 0.9, 0.1, map[int]float32{0: 0.9}),
			kept:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detections, err := d.Decode(interleaved(tt.record), 640, 480)
			require.NoError(t, err)
			if !tt.kept {
				assert.Empty(t, detections)
				return
			}
			require.Len(t, detections, 1)
			assert.Equal(t, tt.want, detections[0].Box)
		})
	}
}

func TestDecode_ClassSelection(t *testing.T) {
	c := smallConfig()
	d := mustDecoder(t, c)

	// Exact tie between classes 1 and 2: the first index wins.
	out := interleaved(record(3, 100, 100, 20, 20, 0.9, 0.1, map[int]float32{1: 0.7, 2: 0.7}))
	detections, err := d.Decode(out, 640, 640)
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.Equal(t, 1, detections[0].Class)
	assert.InDelta(t, 0.63, detections[0].Score, 1e-6)
}

func TestDecode_TwoStageThreshold(t *testing.T) {
	c := smallConfig()
	c.ConfidenceThreshold = 0.5

	// Objectness below the cutoff is rejected even with a perfect class score.
	low := interleaved(record(3, 100, 100, 20, 20, 0.49, 0, map[int]float32{0: 1}))
	detections, err := mustDecoder(t, c).Decode(low, 640, 640)
	require.NoError(t, err)
	assert.Empty(t, detections)

	// Objectness passes but the product falls below the confidence threshold.
	product := interleaved(record(3, 100, 100, 20, 20, 0.6, 0, map[int]float32{0: 0.8}))
	detections, err = mustDecoder(t, c).Decode(product, 640, 640)
	require.NoError(t, err)
	assert.Empty(t, detections)

	// A separate, lower objectness cutoff admits the first record.
	c.ObjectnessThreshold = 0.3
	detections, err = mustDecoder(t, c).Decode(low, 640, 640)
	require.NoError(t, err)
	assert.Empty(t, detections, "0.49 x 1 is still below 0.5")

	high := interleaved(record(3, 100, 100, 20, 20, 0.4, 0, map[int]float32{0: 1}))
	c.ConfidenceThreshold = 0.35
	detections, err = mustDecoder(t, c).Decode(high, 640, 640)
	require.NoError(t, err)
	assert.Len(t, detections, 1)
}

func TestDecode_NaNScoresRejected(t *testing.T) {
	nan := float32(0)
	nan = nan / nan
	d := mustDecoder(t, smallConfig())

	out := interleaved(
		record(3, 100, 100, 20, 20, nan, 0.9, nil),
		record(3, 100, 100, 20, 20, 0.9, nan, nil),
		record(3, nan, 100, 20, 20, 0.9, 0.9, nil),
	)
	detections, err := d.Decode(out, 640, 640)
	require.NoError(t, err)
	assert.Empty(t, detections)
}

func TestDecode_TargetClasses(t *testing.T) {
	records := [][]float32{
		record(80, 100, 100, 40, 40, 0.9, 0.1, map[int]float32{0: 0.9}),
		record(80, 400, 400, 40, 40, 0.9, 0.1, map[int]float32{2: 0.9}),
	}

	people, err := mustDecoder(t, DefaultConfig()).Decode(interleaved(records...), 640, 640)
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, 0, people[0].Class)

	all := DefaultConfig()
	all.TargetClasses = nil
	everything, err := mustDecoder(t, all).Decode(interleaved(records...), 640, 640)
	require.NoError(t, err)
	assert.Len(t, everything, 2)

	cars := DefaultConfig()
	cars.TargetClasses = []int{2}
	onlyCars, err := mustDecoder(t, cars).Decode(interleaved(records...), 640, 640)
	require.NoError(t, err)
	require.Len(t, onlyCars, 1)
	assert.Equal(t, 2, onlyCars[0].Class)
}

func TestDecode_DuplicateSuppression(t *testing.T) {
	c := smallConfig()
	d := mustDecoder(t, c)

	// Two 100x100 boxes offset by 10px: IoU = 9000 / 11000 = 0.82.
	out := interleaved(
		record(3, 210, 200, 100, 100, 1, 0, map[int]float32{0: 0.6}),
		record(3, 200, 200, 100, 100, 1, 0, map[int]float32{0: 0.9}),
	)

	detections, err := d.Decode(out, 640, 640)
	require.NoError(t, err)
	require.Len(t, detections, 1)
	assert.InDelta(t, 0.9, detections[0].Score, 1e-6)
	assert.Equal(t, 1, detections[0].Index)
}

func randomOutput(rng *rand.Rand, numClasses, count int) RawOutput {
	records := make([][]float32, count)
	for i := range records {
		scores := map[int]float32{rng.Intn(numClasses): rng.Float32()}
		records[i] = record(numClasses,
			rng.Float32()*700-30, rng.Float32()*700-30,
			5+rng.Float32()*200, 5+rng.Float32()*200,
			rng.Float32(), rng.Float32()*0.2, scores)
	}
	return interleaved(records...)
}

func TestDecode_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	frameWidth, frameHeight := 800, 450

	for round := 0; round < 20; round++ {
		out := randomOutput(rng, 3, 300)

		previous := -1
		for _, threshold := range []float32{0.05, 0.1, 0.2, 0.3, 0.45, 0.6, 0.8, 0.95} {
			c := smallConfig()
			c.ConfidenceThreshold = threshold
			d := mustDecoder(t, c)

			candidates, err := d.Candidates(out, frameWidth, frameHeight)
			require.NoError(t, err)
			if previous >= 0 {
				assert.LessOrEqual(t, len(candidates), previous, "threshold %f", threshold)
			}
			previous = len(candidates)

			detections, err := d.Decode(out, frameWidth, frameHeight)
			require.NoError(t, err)

			for i, det := range detections {
				assert.GreaterOrEqual(t, det.Box.X, float32(0))
				assert.GreaterOrEqual(t, det.Box.Y, float32(0))
				assert.LessOrEqual(t, det.Box.Right(), float32(frameWidth))
				assert.LessOrEqual(t, det.Box.Bottom(), float32(frameHeight))
				assert.GreaterOrEqual(t, det.Score, threshold)
				if i > 0 {
					assert.GreaterOrEqual(t, detections[i-1].Score, det.Score)
				}
			}

			assert.Equal(t, detections, postprocess.ApplyGreedyNMS(detections, c.NMS))
		}
	}
}

func TestDecoder_ConcurrentUse(t *testing.T) {
	d := mustDecoder(t, smallConfig())
	rng := rand.New(rand.NewSource(3))
	outputs := make([]RawOutput, 8)
	want := make([][]postprocess.Detection, len(outputs))
	for i := range outputs {
		outputs[i] = randomOutput(rng, 3, 200)
		var err error
		want[i], err = d.Decode(outputs[i], 640, 480)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	got := make([][]postprocess.Detection, len(outputs))
	for i := range outputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = d.Decode(outputs[i], 640, 480)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, want, got)
}

func TestDecoder_ConfigIsCopied(t *testing.T) {
	c := DefaultConfig()
	d := mustDecoder(t, c)

	c.TargetClasses[0] = 5
	assert.Equal(t, []int{0}, d.Config().TargetClasses)

	got := d.Config()
	got.TargetClasses[0] = 9
	assert.Equal(t, []int{0}, d.Config().TargetClasses)
}

func BenchmarkDecode_Planar8400(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	count, stride := 8400, 85
	data := make([]float32, count*stride)
	for i := 0; i < count; i++ {
		data[0*count+i] = rng.Float32() * 640
		data[1*count+i] = rng.Float32() * 640
		data[2*count+i] = 10 + rng.Float32()*100
		data[3*count+i] = 10 + rng.Float32()*100
		data[4*count+i] = rng.Float32() * 0.6
		for c := 0; c < 80; c++ {
			data[(5+c)*count+i] = rng.Float32()
		}
	}
	out := RawOutput{Data: data, Shape: []int{1, stride, count}}
	d := mustDecoder(b, DefaultConfig())

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Decode(out, 1280, 720); err != nil {
			b.Fatal(err)
		}
	}
}
