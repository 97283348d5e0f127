// Package grid recovers the lattice topology of a calibration dot target.
//
// The target carries one distinguished center dot (the reddest) sitting in
// the middle of a grid cell. The four dots around it seed the coordinate
// system:
//
//	(-1, 1)  ( 0, 1)
//	     center
//	(-1, 0)  ( 0, 0)
//
// Grid x grows to the right and grid y grows upward, opposite to image y.
//
// Building a grid runs three passes over the detected dots:
//
//  1. FindCenterDots picks the nearest dot in each quadrant of the center.
//  2. LinkDots walks outward breadth first, predicting each neighbor from a
//     local basis that is refined at every hop so it follows lens distortion.
//  3. ApplyGrid propagates integer coordinates along the links.
//
// Materialize then packs the coordinates into a dense table from which row
// and column lines are read for distortion fitting.
package grid
