package onnx

import (
	"image"
	"sort"

	"github.com/nvr-ai/go-annotate/detect"
)

// decodeOutput turns the flattened [1, 4+classes, N] model output into
// detections in original image space. The tensor is channel-major:
// out[c*N+i] is channel c of candidate i. Channels 0..3 are cx, cy, w,
// h in letterboxed input space; the rest are per-class scores.
func decodeOutput(out []float32, lb letterboxParams, opts detect.Options) []detect.Detection {
	numClasses := len(detect.COCONames)
	n := len(out) / (4 + numClasses)
	if n == 0 {
		return nil
	}

	var dets []detect.Detection
	for i := 0; i < n; i++ {
		classID := -1
		var best float32
		for c := 0; c < numClasses; c++ {
			score := out[(4+c)*n+i]
			if score > best {
				best = score
				classID = c
			}
		}
		if best < opts.ConfidenceThreshold {
			continue
		}

		cx := out[i]
		cy := out[n+i]
		w := out[2*n+i]
		h := out[3*n+i]

		x1 := (cx - w/2 - float32(lb.padLeft)) / lb.scale
		y1 := (cy - h/2 - float32(lb.padTop)) / lb.scale
		x2 := (cx + w/2 - float32(lb.padLeft)) / lb.scale
		y2 := (cy + h/2 - float32(lb.padTop)) / lb.scale

		rect := image.Rect(
			clampInt(int(x1), 0, lb.originalW),
			clampInt(int(y1), 0, lb.originalH),
			clampInt(int(x2), 0, lb.originalW),
			clampInt(int(y2), 0, lb.originalH),
		)
		if rect.Empty() {
			continue
		}

		dets = append(dets, detect.Detection{
			Box:        rect,
			Confidence: best,
			ClassID:    classID,
			ClassName:  detect.ClassName(classID),
		})
	}

	return suppressOverlaps(dets, opts.NMSThreshold)
}

// suppressOverlaps applies greedy class-aware non-maximum suppression:
// candidates are visited in descending confidence order and any
// lower-scored box of the same class overlapping a kept box beyond
// threshold is discarded.
func suppressOverlaps(dets []detect.Detection, threshold float32) []detect.Detection {
	if len(dets) <= 1 {
		return dets
	}

	order := make([]int, len(dets))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return dets[order[a]].Confidence > dets[order[b]].Confidence
	})

	used := make([]bool, len(dets))
	kept := make([]detect.Detection, 0, len(dets))
	for _, i := range order {
		if used[i] {
			continue
		}
		used[i] = true
		kept = append(kept, dets[i])
		for _, j := range order {
			if used[j] || dets[j].ClassID != dets[i].ClassID {
				continue
			}
			if iou(dets[i].Box, dets[j].Box) > threshold {
				used[j] = true
			}
		}
	}
	return kept
}

// iou is intersection area over union area for two rectangles.
func iou(a, b image.Rectangle) float32 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := inter.Dx() * inter.Dy()
	union := a.Dx()*a.Dy() + b.Dx()*b.Dy() - interArea
	if union <= 0 {
		return 0
	}
	return float32(interArea) / float32(union)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
