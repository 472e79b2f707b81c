// Package dnn runs ONNX models through OpenCV's DNN module. It needs no
// ONNX Runtime shared library, only an OpenCV build. Linking this
// package registers the "opencv-dnn" backend with detect.Open.
package dnn

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-annotate/detect"
)

func init() {
	detect.RegisterBackend(detect.BackendOpenCVDNN, func(modelPath string, opts detect.Options) (detect.Detector, error) {
		return New(modelPath, opts)
	})
}

// Net wraps a gocv DNN network and implements detect.Detector.
type Net struct {
	mu          sync.Mutex
	net         gocv.Net
	params      gocv.ImageToBlobParams
	outputNames []string
	opts        detect.Options
	closed      bool
	logger      *zap.Logger
}

// New loads the ONNX model at modelPath into an OpenCV DNN network on
// the CPU backend.
func New(modelPath string, opts detect.Options) (*Net, error) {
	opts = opts.WithDefaults()
	logger := opts.Logger.Named("dnn")

	if _, err := os.Stat(modelPath); err != nil {
		return nil, errors.Wrap(err, "model file")
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, errors.Errorf("load onnx model %s", modelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendOpenCV)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	outputNames := outputLayerNames(&net)
	if len(outputNames) == 0 {
		net.Close()
		return nil, errors.Errorf("model %s has no output layers", modelPath)
	}

	size := opts.InputSize
	params := gocv.NewImageToBlobParams(
		1.0/255.0,
		image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0),
		true, // mats are BGR, the model wants RGB
		gocv.MatTypeCV32F,
		gocv.DataLayoutNCHW,
		gocv.PaddingModeLetterbox,
		gocv.NewScalar(114, 114, 114, 0),
	)

	logger.Info("dnn network ready",
		zap.String("model", modelPath),
		zap.Int("input_size", size),
		zap.Strings("outputs", outputNames))

	return &Net{
		net:         net,
		params:      params,
		outputNames: outputNames,
		opts:        opts,
		logger:      logger,
	}, nil
}

func outputLayerNames(net *gocv.Net) []string {
	var names []string
	for _, i := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(i)
		name := layer.GetName()
		if name != "_input" {
			names = append(names, name)
		}
	}
	return names
}

// Infer runs the network over img and returns detections in img's pixel
// space.
func (n *Net) Infer(ctx context.Context, img image.Image) ([]detect.Detection, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, errors.New("network closed")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, errors.Wrap(err, "convert image")
	}
	defer mat.Close()

	blob := gocv.BlobFromImageWithParams(mat, n.params)
	defer blob.Close()

	n.net.SetInput(blob, "")
	outs := n.net.ForwardLayers(n.outputNames)
	defer func() {
		for _, out := range outs {
			out.Close()
		}
	}()

	boxes, scores, classIDs := decodeForward(outs, n.opts.ConfidenceThreshold)
	if len(boxes) == 0 {
		return nil, nil
	}

	bounds := image.Rect(0, 0, mat.Cols(), mat.Rows())
	imageBoxes := n.params.BlobRectsToImageRects(boxes, bounds.Max)
	keep := gocv.NMSBoxes(imageBoxes, scores, n.opts.ConfidenceThreshold, n.opts.NMSThreshold)

	dets := assembleDetections(imageBoxes, scores, classIDs, keep, bounds)
	n.logger.Debug("inference complete",
		zap.Int("candidates", len(boxes)),
		zap.Int("detections", len(dets)))
	return dets, nil
}

// decodeForward reads YOLOv8-style forward outputs. The raw tensor is
// [1, 4+classes, candidates]; a transpose brings candidates into rows
// so each row is cx, cy, w, h followed by class scores.
func decodeForward(outs []gocv.Mat, confThreshold float32) ([]image.Rectangle, []float32, []int) {
	var (
		boxes    []image.Rectangle
		scores   []float32
		classIDs []int
	)

	gocv.TransposeND(outs[0], []int{0, 2, 1}, &outs[0])

	for _, out := range outs {
		out = out.Reshape(1, out.Size()[1])

		for i := 0; i < out.Rows(); i++ {
			row := out.RowRange(i, i+1)
			classScores := row.ColRange(4, out.Cols())
			_, maxVal, _, maxLoc := gocv.MinMaxLoc(classScores)
			classScores.Close()
			row.Close()

			confidence := float32(maxVal)
			if confidence < confThreshold {
				continue
			}

			cx := out.GetFloatAt(i, 0)
			cy := out.GetFloatAt(i, 1)
			w := out.GetFloatAt(i, 2)
			h := out.GetFloatAt(i, 3)

			boxes = append(boxes, image.Rect(
				int(cx-w/2), int(cy-h/2),
				int(cx+w/2), int(cy+h/2),
			))
			scores = append(scores, confidence)
			classIDs = append(classIDs, maxLoc.X)
		}
	}

	return boxes, scores, classIDs
}

// assembleDetections builds the final detection list from the
// suppression survivors, clamping each box to the image bounds.
func assembleDetections(boxes []image.Rectangle, scores []float32, classIDs []int, keep []int, bounds image.Rectangle) []detect.Detection {
	var dets []detect.Detection
	for _, idx := range keep {
		if idx < 0 || idx >= len(boxes) {
			continue
		}
		box := boxes[idx].Intersect(bounds)
		if box.Empty() {
			continue
		}
		dets = append(dets, detect.Detection{
			Box:        box,
			Confidence: scores[idx],
			ClassID:    classIDs[idx],
			ClassName:  detect.ClassName(classIDs[idx]),
		})
	}
	return dets
}

// Close releases the network. Safe to call twice.
func (n *Net) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	if err := n.net.Close(); err != nil {
		return errors.Wrap(err, "close network")
	}
	n.logger.Debug("dnn network closed")
	return nil
}
