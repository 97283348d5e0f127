// Package calibrate runs the stereo calibration end to end.
//
// A calibration directory holds captures of the dot target from both
// cameras, named raw0* (left) and raw1* (right). Images are paired in name
// order and every image is processed independently:
//
//  1. detection.DetectDots finds the dots and the red center dot.
//  2. grid.Build links the dots and assigns grid coordinates.
//  3. lens.Solve fits the radial curve that straightens the grid rows and
//     columns.
//
// The image with the lowest residual curvature is kept for each camera. The
// result records the lens model, the focal length implied by the field of
// view, and the offset between the rectified center dots of each pair, and
// is written as calibration.json next to an undistorted copy of each
// camera's best image.
package calibrate
