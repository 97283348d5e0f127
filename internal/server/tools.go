package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func overlayProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": "Return an annotated base64 PNG of the result (default false)",
		"default":     false,
	}
}

func colorProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Overlay stroke color as #RRGGBB or #RRGGBBAA",
	}
}

func extractProperties(props map[string]interface{}) map[string]interface{} {
	props["erosion_dilation"] = map[string]interface{}{
		"type":        "integer",
		"description": "Morphology before edge detection: positive erodes, negative dilates (default 0)",
		"default":     0,
	}
	props["grouping_radius_percent"] = map[string]interface{}{
		"type":        "number",
		"description": "Distance, as a percentage of image width, within which edge perimeters merge into one shape",
	}
	props["minimum_size_percent"] = map[string]interface{}{
		"type":        "number",
		"description": "Drop perimeters shorter than this percentage of the longest one",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Stage tools
		{
			Name:        "calibration_edge_detect",
			Description: "Run Canny edge detection with automatic thresholds and gap bridging. Returns the thresholds used, the measured contrast, and the edge map as base64 PNG (edges black).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"erosion_dilation": map[string]interface{}{
						"type":        "integer",
						"description": "Morphology before edge detection: positive erodes, negative dilates (default 0)",
						"default":     0,
					},
					"connect_separation": map[string]interface{}{
						"type":        "integer",
						"description": "Bridge edge gaps up to this many pixels (default 3, 0 disables)",
						"default":     3,
					},
					"low_threshold": map[string]interface{}{
						"type":        "number",
						"description": "Manual low hysteresis threshold; set together with high_threshold to disable automatic thresholds",
					},
					"high_threshold": map[string]interface{}{
						"type":        "number",
						"description": "Manual high hysteresis threshold",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "calibration_detect_dots",
			Description: "Detect calibration dots. Returns each dot's center, radius and mean color, and flags the reddest as the center dot.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": extractProperties(map[string]interface{}{
					"path": pathProperty(),
					"min_width": map[string]interface{}{
						"type":        "integer",
						"description": "Smallest accepted dot diameter in pixels",
					},
					"max_width": map[string]interface{}{
						"type":        "integer",
						"description": "Largest accepted dot diameter in pixels",
					},
					"overlay": overlayProperty(),
					"color":   colorProperty(),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "calibration_detect_squares",
			Description: "Detect square outlines (such as the alignment square). Squares are tracked across calls; each result carries a track id that stays stable while the square stays in place.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": extractProperties(map[string]interface{}{
					"path": pathProperty(),
					"min_side": map[string]interface{}{
						"type":        "integer",
						"description": "Shortest accepted side in pixels",
					},
					"max_side": map[string]interface{}{
						"type":        "integer",
						"description": "Longest accepted side in pixels",
					},
					"overlay": overlayProperty(),
					"color":   colorProperty(),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "calibration_grid",
			Description: "Detect dots and assign grid coordinates relative to the center dot. Grid x grows right and grid y grows up; the four dots around the center are (-1,1), (0,1), (0,0), (-1,0).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty(),
					"overlay": overlayProperty(),
					"color":   colorProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "calibration_solve",
			Description: "Run the full single-image pipeline: dots, grid, and the lens distortion search. Returns the radial curve, scale, rotation and curvature scores; the overlay shows the rectified image with the rectified grid lines.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"rounds": map[string]interface{}{
						"type":        "integer",
						"description": "Search rounds (default 20)",
					},
					"samples": map[string]interface{}{
						"type":        "integer",
						"description": "Samples per axis per round (default 200)",
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Random seed for candidate jitter",
					},
					"overlay": overlayProperty(),
					"color":   colorProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Batch
		{
			Name:        "calibration_directory",
			Description: "Calibrate a stereo pair from a directory of raw0*/raw1* images and write calibration.json and rectified images.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory holding raw0*/raw1* calibration images",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Where results are written (default dir)",
					},
					"baseline_mm": map[string]interface{}{
						"type":        "number",
						"description": "Distance between the camera centers in mm",
					},
					"dot_spacing_mm": map[string]interface{}{
						"type":        "number",
						"description": "Distance between neighboring dots on the target in mm",
					},
					"height_mm": map[string]interface{}{
						"type":        "number",
						"description": "Camera height above the target in mm",
					},
					"fov_degrees": map[string]interface{}{
						"type":        "number",
						"description": "Horizontal field of view in degrees",
					},
					"diagnostics": map[string]interface{}{
						"type":        "boolean",
						"description": "Also write overlay images and curve plots",
						"default":     false,
					},
				},
				"required": []string{"dir", "baseline_mm", "dot_spacing_mm", "height_mm", "fov_degrees"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
