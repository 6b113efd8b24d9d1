//go:build cgo
// +build cgo

package highlight

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// DNNBackend is a ModelBackend implementation over gocv's DNN module. It
// loads a pre-trained detector (any architecture exported to ONNX/Caffe/
// Darknet that gocv.ReadNet accepts) and exposes it as the blocking,
// synchronous call the Detector expects; spec §5 allows the backend to use
// compute-device parallelism internally (e.g. a CUDA/OpenCL DNN target) as
// long as Infer itself blocks until a result is ready.
type DNNBackend struct {
	mu  sync.Mutex
	net gocv.Net

	inputW, inputH int
	scaleFactor    float64
	mean           gocv.Scalar
	classNames     []string
	ballClass      string
	minConf        float64
}

// DNNBackendConfig bundles every knob needed to load and run a DNN detector.
type DNNBackendConfig struct {
	ModelPath   string
	ConfigPath  string // optional, required by some architectures (e.g. Darknet .cfg)
	InputW      int
	InputH      int
	ScaleFactor float64
	MeanR       float64
	MeanG       float64
	MeanB       float64
	ClassNames  []string
	BallClass   string
	MinConf     float64
}

// NewDNNBackend loads the network from disk. The returned backend owns the
// network and must be closed by the caller (Orchestrator teardown).
func NewDNNBackend(cfg DNNBackendConfig) (*DNNBackend, error) {
	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, &RunError{Kind: KindConfig, Wrapped: fmt.Errorf("loading detector model %q: empty network", cfg.ModelPath)}
	}

	return &DNNBackend{
		net:         net,
		inputW:      cfg.InputW,
		inputH:      cfg.InputH,
		scaleFactor: cfg.ScaleFactor,
		mean:        gocv.NewScalar(cfg.MeanB, cfg.MeanG, cfg.MeanR, 0),
		classNames:  cfg.ClassNames,
		ballClass:   cfg.BallClass,
		minConf:     cfg.MinConf,
	}, nil
}

// Infer runs one forward pass and maps raw network outputs into candidates,
// already restricted to the ball class (spec §6.1's "class filter selects
// ball-class detections only").
func (b *DNNBackend) Infer(frame Frame) ([]Candidate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	mat, ok := FrameMat(frame)
	if !ok || mat == nil || mat.Empty() {
		return nil, &RunError{Kind: KindDetector, Wrapped: fmt.Errorf("frame %d has no backing mat", frame.CameraID)}
	}

	blob := gocv.BlobFromImage(*mat, b.scaleFactor, image.Pt(b.inputW, b.inputH), b.mean, true, false)
	defer blob.Close()

	b.net.SetInput(blob, "")
	out := b.net.Forward("")
	defer out.Close()

	return b.parseDetections(out, mat.Cols(), mat.Rows()), nil
}

// parseDetections reads an SSD/YOLO-style [1,1,N,7] output tensor
// (image_id, class_id, conf, x1, y1, x2, y2 in [0,1]) into pixel-space
// Candidates. Architectures with a different output layout need their own
// parse step; this covers the common OpenCV DNN detection tensor shape.
func (b *DNNBackend) parseDetections(out gocv.Mat, w, h int) []Candidate {
	var candidates []Candidate

	data := out.Reshape(1, out.Total()/7)
	rows := data.Rows()
	for i := 0; i < rows; i++ {
		conf := float64(data.GetFloatAt(i, 2))
		if conf <= 0 {
			continue
		}
		classID := int(data.GetFloatAt(i, 1))
		class := ""
		if classID >= 0 && classID < len(b.classNames) {
			class = b.classNames[classID]
		}
		if b.ballClass != "" && class != b.ballClass {
			continue
		}

		box := BBox{
			X1: float64(data.GetFloatAt(i, 3)) * float64(w),
			Y1: float64(data.GetFloatAt(i, 4)) * float64(h),
			X2: float64(data.GetFloatAt(i, 5)) * float64(w),
			Y2: float64(data.GetFloatAt(i, 6)) * float64(h),
		}
		candidates = append(candidates, Candidate{Box: box, Conf: conf, Class: class})
	}

	return candidates
}

// Close releases the underlying network.
func (b *DNNBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.net.Close()
}
