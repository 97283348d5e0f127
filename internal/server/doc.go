// Package server implements the MCP (Model Context Protocol) server for the
// calibration stages.
//
// Each stage of the calibration pipeline is exposed as a tool so a client
// can inspect intermediate results on a single image before running a full
// directory calibration.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Stage tools, operating on one image:
//   - calibration_edge_detect: Canny edge map with the thresholds used
//   - calibration_detect_dots: dots and the red center dot
//   - calibration_detect_squares: square outlines, tracked across calls
//   - calibration_grid: dots with grid coordinates
//   - calibration_solve: lens model for one image
//
// Batch:
//   - calibration_directory: full stereo calibration of a directory
//
// Tools that accept "overlay" return an annotated PNG as base64 next to the
// numeric result.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC errors with code -32000 and the cause
// in the data field. Malformed tools/call parameters return -32602.
package server
