// Package imaging provides the pixel-level building blocks of the calibration
// pipeline.
//
// It owns the boundary between image files and the algorithms (Open, Save,
// ImageCache), the packed pixel Buffer the algorithms consume,
// morphological preprocessing, dot color sampling, the Canny edge detector
// and the Overlay canvas used for diagnostic renderings.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Buffers and edge maps are
// row-major: pixel (x, y) lives at index y*Width+x.
//
// # Edge Detection
//
// Canny follows the classic pipeline (Gaussian smoothing, derivative
// convolution, non-maximal suppression, hysteresis) with two additions used by
// dot-grid photographs:
//
//   - Automatic thresholds derived from the contrast between the dark and
//     light classes of the central part of the image.
//   - EdgeMap.ConnectBrokenEdges, which bridges short gaps between chain ends
//     so that dot outlines close.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. A Canny detector caches kernels and
// per-run statistics and must not be shared between goroutines. Buffers,
// edge maps and overlays are plain values owned by the caller.
package imaging
