package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ironsheep/stereo-calibrate/internal/calibrate"
	"github.com/ironsheep/stereo-calibrate/internal/detection"
	"github.com/ironsheep/stereo-calibrate/internal/grid"
	"github.com/ironsheep/stereo-calibrate/internal/imaging"
	"github.com/ironsheep/stereo-calibrate/internal/lens"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "calibration_grid").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warnw("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Stage tools
	case "calibration_edge_detect":
		return s.handleEdgeDetect(args)
	case "calibration_detect_dots":
		return s.handleDetectDots(args)
	case "calibration_detect_squares":
		return s.handleDetectSquares(args)
	case "calibration_grid":
		return s.handleGrid(args)
	case "calibration_solve":
		return s.handleSolve(ctx, args)

	// Batch
	case "calibration_directory":
		return s.handleDirectory(ctx, args)

	default:
		return nil, errors.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func (s *Server) loadBuffer(path string) (image.Image, *imaging.Buffer, error) {
	if path == "" {
		return nil, nil, errors.New("path is required")
	}
	return s.cache.LoadBuffer(path)
}

// overlayColor parses a "#RRGGBB" or "#RRGGBBAA" argument, falling back to
// def when it is empty.
func overlayColor(hex string, def color.Color) (color.Color, error) {
	if hex == "" {
		return def, nil
	}
	c, err := imaging.ParseHexColor(hex)
	if err != nil {
		return nil, errors.Wrap(err, "invalid color")
	}
	return c, nil
}

// extractArgs are the shared front end overrides.
type extractArgs struct {
	ErosionDilation       *int     `json:"erosion_dilation"`
	GroupingRadiusPercent *float64 `json:"grouping_radius_percent"`
	MinimumSizePercent    *float64 `json:"minimum_size_percent"`
}

func (a extractArgs) apply(c *detection.ExtractConfig) {
	if a.ErosionDilation != nil {
		c.ErosionDilation = *a.ErosionDilation
	}
	if a.GroupingRadiusPercent != nil {
		c.GroupingRadiusPercent = *a.GroupingRadiusPercent
	}
	if a.MinimumSizePercent != nil {
		c.MinimumSizePercent = *a.MinimumSizePercent
	}
}

// === Edge Detection ===

type edgeDetectArgs struct {
	Path              string   `json:"path"`
	ErosionDilation   int      `json:"erosion_dilation"`
	ConnectSeparation *int     `json:"connect_separation"`
	LowThreshold      *float64 `json:"low_threshold"`
	HighThreshold     *float64 `json:"high_threshold"`
}

// EdgeDetectResult is returned by calibration_edge_detect.
type EdgeDetectResult struct {
	Width         int                   `json:"width"`
	Height        int                   `json:"height"`
	EdgePixels    int                   `json:"edge_pixels"`
	Bridged       int                   `json:"bridged"`
	Automatic     bool                  `json:"automatic"`
	LowThreshold  float64               `json:"low_threshold"`
	HighThreshold float64               `json:"high_threshold"`
	Contrast      float64               `json:"contrast"`
	OutOfBand     bool                  `json:"contrast_out_of_band"`
	Image         *imaging.EncodedImage `json:"image"`
}

func (s *Server) handleEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a edgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	_, buf, err := s.loadBuffer(a.Path)
	if err != nil {
		return nil, err
	}

	canny := imaging.NewCanny()
	if a.LowThreshold != nil && a.HighThreshold != nil {
		canny.AutomaticThresholds = false
		canny.LowThreshold = *a.LowThreshold
		canny.HighThreshold = *a.HighThreshold
	}
	edges, err := canny.UpdateBuffer(imaging.MorphBuffer(buf, a.ErosionDilation))
	if err != nil {
		return nil, err
	}
	sep := s.cfg.Dots.ConnectSeparation
	if a.ConnectSeparation != nil {
		sep = *a.ConnectSeparation
	}
	bridged := 0
	if sep > 0 {
		bridged = edges.ConnectBrokenEdges(sep)
	}

	enc, err := imaging.EncodePNG(edges.Image())
	if err != nil {
		return nil, err
	}
	res := &EdgeDetectResult{
		Width:      edges.Width,
		Height:     edges.Height,
		EdgePixels: edges.Count(),
		Bridged:    bridged,
		Automatic:  canny.AutomaticThresholds,
		Contrast:   canny.Contrast(),
		OutOfBand:  canny.ContrastOutOfBand(),
		Image:      enc,
	}
	res.LowThreshold, res.HighThreshold = canny.Thresholds()
	return res, nil
}

// === Dots ===

type detectDotsArgs struct {
	Path string `json:"path"`
	extractArgs
	MinWidth *int   `json:"min_width"`
	MaxWidth *int   `json:"max_width"`
	Overlay  bool   `json:"overlay"`
	Color    string `json:"color"`
}

// DetectDotsResult is returned by calibration_detect_dots.
type DetectDotsResult struct {
	Count     int                   `json:"count"`
	Center    int                   `json:"center_index"`
	Dots      []detection.Dot       `json:"dots"`
	Colors    []imaging.ColorResult `json:"colors"`
	Truncated int                   `json:"truncated_perimeters"`
	Contrast  float64               `json:"contrast"`
	OutOfBand bool                  `json:"contrast_out_of_band"`
	Image     *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleDetectDots(args json.RawMessage) (interface{}, error) {
	var a detectDotsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, buf, err := s.loadBuffer(a.Path)
	if err != nil {
		return nil, err
	}

	cfg := s.cfg.Dots
	a.apply(&cfg.ExtractConfig)
	if a.MinWidth != nil {
		cfg.MinWidth = *a.MinWidth
	}
	if a.MaxWidth != nil {
		cfg.MaxWidth = *a.MaxWidth
	}

	dr, err := detection.DetectDots(buf, cfg)
	if err != nil {
		return nil, err
	}
	res := &DetectDotsResult{
		Count:     len(dr.Dots),
		Center:    dr.Center,
		Dots:      dr.Dots,
		Truncated: dr.Truncated,
		Contrast:  dr.Contrast,
		OutOfBand: dr.OutOfBand,
	}
	for _, d := range dr.Dots {
		res.Colors = append(res.Colors, d.Color.Result())
	}
	if a.Overlay {
		c, err := overlayColor(a.Color, imaging.ColorDot)
		if err != nil {
			return nil, err
		}
		o := imaging.NewOverlay(img)
		calibrate.DrawDots(o, dr.Dots, c)
		if res.Image, err = o.Encode(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// === Squares ===

type detectSquaresArgs struct {
	Path string `json:"path"`
	extractArgs
	MinSide *int   `json:"min_side"`
	MaxSide *int   `json:"max_side"`
	Overlay bool   `json:"overlay"`
	Color   string `json:"color"`
}

// SquareResult describes one detected square.
type SquareResult struct {
	TrackID     uuid.UUID    `json:"track_id"`
	Hits        int          `json:"hits"`
	Vertices    [][2]float64 `json:"vertices"`
	Centroid    [2]float64   `json:"centroid"`
	Angles      []float64    `json:"angles"`
	Sides       []float64    `json:"sides"`
	Area        float64      `json:"area"`
	Squareness  float64      `json:"squareness"`
	Orientation float64      `json:"orientation"`
}

// DetectSquaresResult is returned by calibration_detect_squares.
type DetectSquaresResult struct {
	Count   int                   `json:"count"`
	Squares []SquareResult        `json:"squares"`
	Expired []uuid.UUID           `json:"expired_tracks,omitempty"`
	Missing []uuid.UUID           `json:"missing_tracks,omitempty"`
	Image   *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleDetectSquares(args json.RawMessage) (interface{}, error) {
	var a detectSquaresArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, buf, err := s.loadBuffer(a.Path)
	if err != nil {
		return nil, err
	}

	cfg := detection.DefaultSquareConfig()
	a.apply(&cfg.ExtractConfig)
	if a.ErosionDilation != nil {
		cfg.Levels = []int{*a.ErosionDilation}
	}
	if a.MinSide != nil {
		cfg.MinSide = *a.MinSide
	}
	if a.MaxSide != nil {
		cfg.MaxSide = *a.MaxSide
	}

	squares, err := detection.DetectSquares(buf, cfg)
	if err != nil {
		return nil, err
	}

	res := &DetectSquaresResult{Count: len(squares)}
	res.Expired = s.tracker.Advance(s.now())
	ids := s.tracker.Update(squares)
	for i, sq := range squares {
		tr, _ := s.tracker.Get(ids[i])
		c := sq.Centroid()
		sr := SquareResult{
			TrackID:     ids[i],
			Hits:        tr.Hits,
			Centroid:    [2]float64{c.X, c.Y},
			Angles:      sq.Angles(),
			Sides:       sq.Sides(),
			Area:        sq.Area(),
			Squareness:  sq.Squareness(),
			Orientation: sq.Orientation(),
		}
		for _, v := range sq.Vertices {
			sr.Vertices = append(sr.Vertices, [2]float64{v.X, v.Y})
		}
		res.Squares = append(res.Squares, sr)
	}
	// Live tracks this image did not match.
	for _, tr := range s.tracker.Tracks() {
		if tr.LastSeen.Before(s.tracker.Now()) {
			res.Missing = append(res.Missing, tr.ID)
		}
	}

	if a.Overlay {
		c, err := overlayColor(a.Color, imaging.ColorSquare)
		if err != nil {
			return nil, err
		}
		o := imaging.NewOverlay(img)
		calibrate.DrawSquares(o, squares, c)
		if res.Image, err = o.Encode(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// === Grid ===

type gridArgs struct {
	Path    string `json:"path"`
	Overlay bool   `json:"overlay"`
	Color   string `json:"color"`
}

// GridDot is a dot with its grid coordinates.
type GridDot struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	GridX int     `json:"grid_x"`
	GridY int     `json:"grid_y"`
}

// GridResult is returned by calibration_grid.
type GridResult struct {
	Cols       int                   `json:"cols"`
	Rows       int                   `json:"rows"`
	MinX       int                   `json:"min_x"`
	MinY       int                   `json:"min_y"`
	Nulls      int                   `json:"nulls"`
	Dots       []GridDot             `json:"dots"`
	Unassigned int                   `json:"unassigned"`
	RowLines   int                   `json:"row_lines"`
	ColLines   int                   `json:"column_lines"`
	Image      *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleGrid(args json.RawMessage) (interface{}, error) {
	var a gridArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, buf, err := s.loadBuffer(a.Path)
	if err != nil {
		return nil, err
	}

	dr, err := detection.DetectDots(buf, s.cfg.Dots)
	if err != nil {
		return nil, err
	}
	g, err := grid.Build(dr.Dots)
	if err != nil {
		return nil, err
	}

	res := &GridResult{
		Cols:     g.Cols,
		Rows:     g.Rows,
		MinX:     g.MinX,
		MinY:     g.MinY,
		Nulls:    g.Nulls(),
		RowLines: len(g.RowLines()),
		ColLines: len(g.ColumnLines()),
	}
	for y := g.MinY; y < g.MinY+g.Rows; y++ {
		for x := g.MinX; x < g.MinX+g.Cols; x++ {
			if d, ok := g.At(x, y); ok {
				res.Dots = append(res.Dots, GridDot{X: d.Center.X, Y: d.Center.Y, GridX: x, GridY: y})
			}
		}
	}
	for i := range g.Dots {
		if !g.Dots[i].IsCenter && !g.Dots[i].Assigned() {
			res.Unassigned++
		}
	}

	if a.Overlay {
		c, err := overlayColor(a.Color, imaging.ColorDot)
		if err != nil {
			return nil, err
		}
		o := imaging.NewOverlay(img)
		calibrate.DrawGrid(o, g, c, true)
		if res.Image, err = o.Encode(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// === Lens ===

type solveArgs struct {
	Path    string `json:"path"`
	Rounds  *int   `json:"rounds"`
	Samples *int   `json:"samples"`
	Seed    *int64 `json:"seed"`
	Overlay bool   `json:"overlay"`
	Color   string `json:"color"`
}

// SolveResult is returned by calibration_solve.
type SolveResult struct {
	*lens.Result
	Width              int                   `json:"width"`
	Height             int                   `json:"height"`
	GridCols           int                   `json:"grid_cols"`
	GridRows           int                   `json:"grid_rows"`
	MedianRadius       float64               `json:"median_dot_radius"`
	MedianSpacing      float64               `json:"median_dot_spacing"`
	CenterDot          [2]float64            `json:"center_dot"`
	RectifiedCenterDot [2]float64            `json:"rectified_center_dot"`
	Image              *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleSolve(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a solveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	cfg := s.cfg
	if a.Rounds != nil {
		cfg.Solver.Rounds = *a.Rounds
	}
	if a.Samples != nil {
		cfg.Solver.Samples = *a.Samples
	}
	if a.Seed != nil {
		cfg.Solver.Seed = *a.Seed
	}

	r, err := calibrate.NewPipeline(cfg, s.logger).Process(ctx, img)
	if err != nil {
		return nil, err
	}
	res := &SolveResult{
		Result:             r.Lens,
		Width:              r.Width,
		Height:             r.Height,
		GridCols:           r.Grid.Cols,
		GridRows:           r.Grid.Rows,
		MedianRadius:       r.MedianRadius,
		MedianSpacing:      r.MedianSpacing,
		CenterDot:          [2]float64{r.CenterDot.X, r.CenterDot.Y},
		RectifiedCenterDot: [2]float64{r.RectifiedCenterDot.X, r.RectifiedCenterDot.Y},
	}

	if a.Overlay {
		c, err := overlayColor(a.Color, imaging.ColorLine)
		if err != nil {
			return nil, err
		}
		rm, err := lens.BuildMap(r.Width, r.Height, r.Lens.Model)
		if err != nil {
			return nil, err
		}
		rect, err := rm.Remap(img)
		if err != nil {
			return nil, err
		}
		o := imaging.NewOverlay(rect)
		calibrate.DrawLines(o, r.Lens.Lines, c)
		if res.Image, err = o.Encode(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// === Directory ===

type directoryArgs struct {
	Dir          string  `json:"dir"`
	OutputDir    string  `json:"output_dir"`
	BaselineMM   float64 `json:"baseline_mm"`
	DotSpacingMM float64 `json:"dot_spacing_mm"`
	HeightMM     float64 `json:"height_mm"`
	FOVDegrees   float64 `json:"fov_degrees"`
	Diagnostics  bool    `json:"diagnostics"`
}

// DirectoryResult is returned by calibration_directory.
type DirectoryResult struct {
	Calibration *calibrate.Calibration `json:"calibration"`
	Files       []string               `json:"files"`
	Failed      []string               `json:"failed_images,omitempty"`
}

func (s *Server) handleDirectory(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a directoryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg := s.cfg
	cfg.Dir = a.Dir
	cfg.OutputDir = a.OutputDir
	cfg.BaselineMM = a.BaselineMM
	cfg.DotSpacingMM = a.DotSpacingMM
	cfg.HeightMM = a.HeightMM
	cfg.FOVDegrees = a.FOVDegrees
	cfg.Diagnostics = a.Diagnostics
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cal, pairs, err := calibrate.NewPipeline(cfg, s.logger).Run(ctx)
	if err != nil {
		return nil, err
	}
	files, err := calibrate.WriteOutputs(cfg.Output(), cal, cfg.Diagnostics, s.logger)
	if err != nil {
		return nil, err
	}
	// Outputs may overwrite images the stage tools have cached.
	s.cache.Clear()

	res := &DirectoryResult{Calibration: cal, Files: files}
	for _, pr := range pairs {
		if pr.Results[0] == nil {
			res.Failed = append(res.Failed, pr.Left)
		}
		if pr.Results[1] == nil {
			res.Failed = append(res.Failed, pr.Right)
		}
	}
	return res, nil
}
