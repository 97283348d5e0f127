// Package detection turns edge maps into calibration features: dots and
// square outlines.
//
// # Pipeline
//
// Both detectors share the front end implemented by Extract:
//
//  1. Preprocessing: optional erosion (positive level) or dilation (negative
//     level) of the source image.
//  2. Edge detection: imaging.Canny with automatic thresholds, followed by
//     gap bridging between nearby chain ends.
//  3. Tracing: TracePerimeters splits the edge map into 8-connected
//     perimeters using an explicit stack. Each pixel joins at most one
//     perimeter and a perimeter records at most MaxPerimeterPoints pixels.
//  4. Filtering: perimeters much shorter than the longest are dropped.
//  5. Grouping: GroupPerimeters merges perimeters that lie within a small
//     radius of each other on a 4x downsampled label grid.
//
// DetectDots keeps roughly round groups within a size window and flags the
// reddest as the center dot. DetectSquares fits a line to each side profile
// of a group, intersects the lines into a quadrilateral, and arbitrates
// overlapping candidates with SelectSquares.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Sub-pixel positions (dot centers, polygon vertices) are r2.Point values.
//
// # Tracking
//
// Tracker follows squares across successive frames. It has no internal
// clock: callers move time forward with Advance, which makes matching and
// expiry reproducible in tests.
package detection
