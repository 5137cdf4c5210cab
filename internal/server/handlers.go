package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/ironsheep/planogram-mcp/internal/compliance"
	"github.com/ironsheep/planogram-mcp/internal/detection"
	"github.com/ironsheep/planogram-mcp/internal/editor"
	"github.com/ironsheep/planogram-mcp/internal/geometry"
	"github.com/ironsheep/planogram-mcp/internal/imaging"
	"github.com/ironsheep/planogram-mcp/internal/planogram"
	"github.com/ironsheep/planogram-mcp/internal/store"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "planogram_create", "shelf_analyze").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// ErrUnknownTool is returned for a tool name the server does not define.
var ErrUnknownTool = errors.New("unknown tool")

// paramError marks arguments that are missing or malformed.
type paramError struct{ msg string }

func (e *paramError) Error() string { return e.msg }

func invalidParams(msg string) error { return &paramError{msg: msg} }

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments and unknown tools answer -32602; any other tool failure
// answers -32000 with the Go error string as data.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		var pe *paramError
		if errors.As(err, &pe) || errors.Is(err, ErrUnknownTool) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
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
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Locks the planogram session it works on, if any
//  4. Calls the layout, editor, detection or imaging function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Planogram lifecycle
	case "planogram_create":
		return s.handlePlanogramCreate(ctx, args)
	case "planogram_load":
		return s.handlePlanogramLoad(ctx, args)
	case "planogram_import":
		return s.handlePlanogramImport(ctx, args)
	case "planogram_get":
		return s.handlePlanogramGet(ctx, args)
	case "planogram_list":
		return s.handlePlanogramList(ctx, args)
	case "planogram_save":
		return s.handlePlanogramSave(ctx, args)
	case "planogram_delete":
		return s.handlePlanogramDelete(ctx, args)
	case "planogram_export":
		return s.handlePlanogramExport(ctx, args)
	case "planogram_render":
		return s.handlePlanogramRender(ctx, args)

	// Editing
	case "planogram_add_product":
		return s.handleAddProduct(ctx, args)
	case "planogram_move_product":
		return s.handleMoveProduct(ctx, args)
	case "planogram_remove_product":
		return s.handleRemoveProduct(ctx, args)
	case "planogram_update_product":
		return s.handleUpdateProduct(ctx, args)
	case "planogram_undo":
		return s.handleUndo(ctx, args)
	case "planogram_redo":
		return s.handleRedo(ctx, args)
	case "planogram_product_at":
		return s.handleProductAt(ctx, args)

	// Shelf analysis
	case "shelf_detect":
		return s.handleShelfDetect(ctx, args)
	case "shelf_analyze":
		return s.handleShelfAnalyze(ctx, args)
	case "shelf_reanalyze":
		return s.handleShelfReanalyze(ctx, args)
	case "shelf_annotate":
		return s.handleShelfAnnotate(ctx, args)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
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

// mustMarshalJSON converts a value to pretty-printed JSON string. A value
// that cannot be marshaled yields "".
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments into v. Missing arguments decode as
// an empty object.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return invalidParams(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

// StateResult is the presentation view returned by every tool that touches
// a planogram session.
type StateResult struct {
	editor.State

	DiscrepancyCounts map[compliance.Type]int `json:"discrepancyCounts,omitempty"`

	Changed *bool              `json:"changed,omitempty"`
	Product *planogram.Product `json:"product,omitempty"`
	Summary *detection.Summary `json:"summary,omitempty"`
	Shelves []detection.Shelf  `json:"shelves,omitempty"`
}

func stateOf(e *editor.Editor) *StateResult {
	st := e.State()
	res := &StateResult{State: st}
	if len(st.Discrepancies) > 0 {
		res.DiscrepancyCounts = discrepancyCounts(st.Discrepancies)
	}
	return res
}

// === Planogram Lifecycle Handlers ===

type idArgs struct {
	ID string `json:"id"`
}

type planogramCreateArgs struct {
	Name          string  `json:"name"`
	StoreID       string  `json:"store_id"`
	ShelfID       string  `json:"shelf_id"`
	Levels        int     `json:"levels"`
	SlotsPerLevel int     `json:"slots_per_level"`
	SlotWidth     float64 `json:"slot_width"`
	SlotHeight    float64 `json:"slot_height"`
	GridSize      float64 `json:"grid_size"`
}

func (s *Server) handlePlanogramCreate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a planogramCreateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Levels == 0 {
		a.Levels = s.layout.Levels
	}
	if a.SlotsPerLevel == 0 {
		a.SlotsPerLevel = s.layout.SlotsPerLevel
	}
	if a.SlotWidth == 0 {
		a.SlotWidth = s.layout.SlotWidth
	}
	if a.SlotHeight == 0 {
		a.SlotHeight = s.layout.SlotHeight
	}
	if a.GridSize == 0 {
		a.GridSize = s.layout.GridSize
	}

	p, err := planogram.Initialize(a.Levels, a.SlotsPerLevel, a.SlotWidth, a.SlotHeight)
	if err != nil {
		return nil, err
	}
	if a.Name != "" {
		p.Name = a.Name
	}
	p.StoreID = a.StoreID
	p.ShelfID = a.ShelfID
	p.Metadata.GridSize = a.GridSize

	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, fmt.Errorf("failed to store planogram: %w", err)
	}

	sess := s.open(p)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return stateOf(sess.editor), nil
}

// handlePlanogramLoad reads a stored planogram into a fresh session,
// discarding any open session and its history for the same id.
func (s *Server) handlePlanogramLoad(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a idArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		return nil, invalidParams("id is required")
	}

	p, err := s.repo.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	sess := s.open(*p)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return stateOf(sess.editor), nil
}

type planogramImportArgs struct {
	JSON string `json:"json"`
	Path string `json:"path"`
	Save bool   `json:"save"`
}

func (s *Server) handlePlanogramImport(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a planogramImportArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	data := []byte(a.JSON)
	if a.JSON == "" {
		if a.Path == "" {
			return nil, invalidParams("json or path is required")
		}
		var err error
		if data, err = os.ReadFile(a.Path); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", a.Path, err)
		}
	}

	p, err := planogram.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}

	if a.Save {
		if err := s.persist(ctx, &p); err != nil {
			return nil, err
		}
	}

	sess := s.open(p)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return stateOf(sess.editor), nil
}

func (s *Server) handlePlanogramGet(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a idArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		return stateOf(e), nil
	})
}

type planogramListArgs struct {
	StoreID string `json:"store_id"`
}

type listResult struct {
	Planograms []*store.Summary `json:"planograms"`
	Count      int              `json:"count"`
}

func (s *Server) handlePlanogramList(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a planogramListArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	summaries, err := s.repo.List(ctx, a.StoreID)
	if err != nil {
		return nil, err
	}
	return &listResult{Planograms: summaries, Count: len(summaries)}, nil
}

func (s *Server) handlePlanogramSave(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a idArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		p := e.Planogram()
		if err := s.persist(ctx, &p); err != nil {
			return nil, err
		}
		return stateOf(e), nil
	})
}

// persist updates p in the repository, creating it if it is not stored yet.
func (s *Server) persist(ctx context.Context, p *planogram.Planogram) error {
	err := s.repo.Update(ctx, p)
	if store.IsNotFound(err) {
		err = s.repo.Create(ctx, p)
	}
	if err != nil {
		return fmt.Errorf("failed to save planogram %s: %w", p.ID, err)
	}
	return nil
}

func (s *Server) handlePlanogramDelete(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a idArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		return nil, invalidParams("id is required")
	}

	s.mu.Lock()
	_, open := s.sessions[a.ID]
	s.mu.Unlock()

	// The session, with any unsaved edits, survives a failed delete.
	err := s.repo.Delete(ctx, a.ID)
	if err != nil && !(open && store.IsNotFound(err)) {
		return nil, err
	}

	s.mu.Lock()
	delete(s.sessions, a.ID)
	s.mu.Unlock()
	return map[string]interface{}{"id": a.ID, "deleted": true}, nil
}

type planogramExportArgs struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type exportResult struct {
	ID   string `json:"id"`
	JSON string `json:"json"`
	Path string `json:"path,omitempty"`
}

func (s *Server) handlePlanogramExport(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a planogramExportArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		data, err := planogram.Marshal(e.Planogram())
		if err != nil {
			return nil, err
		}
		if a.Path != "" {
			if err := os.WriteFile(a.Path, data, 0o644); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", a.Path, err)
			}
		}
		return &exportResult{ID: a.ID, JSON: string(data), Path: a.Path}, nil
	})
}

type planogramRenderArgs struct {
	ID                string  `json:"id"`
	Zoom              float64 `json:"zoom"`
	ShowGrid          *bool   `json:"show_grid"`
	ShowLabels        *bool   `json:"show_labels"`
	ShowDiscrepancies *bool   `json:"show_discrepancies"`
	OutputPath        string  `json:"output_path"`
}

type imageResult struct {
	*imaging.EncodedImage
	Path string `json:"path,omitempty"`
}

func (s *Server) handlePlanogramRender(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a planogramRenderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	opts := imaging.DefaultRenderOptions()
	if a.Zoom != 0 {
		opts.Zoom = a.Zoom
	}
	if a.ShowGrid != nil {
		opts.ShowGrid = *a.ShowGrid
	}
	if a.ShowLabels != nil {
		opts.ShowLabels = *a.ShowLabels
	}
	if a.ShowDiscrepancies != nil {
		opts.ShowDiscrepancies = *a.ShowDiscrepancies
	}

	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		st := e.State()
		img, err := imaging.RenderPlanogram(st.Planogram, st.Observations, st.Discrepancies, opts)
		if err != nil {
			return nil, err
		}
		return encodeImage(img, a.OutputPath)
	})
}

func encodeImage(img image.Image, outputPath string) (*imageResult, error) {
	if outputPath != "" {
		if err := imaging.Save(img, outputPath); err != nil {
			return nil, err
		}
	}
	enc, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return &imageResult{EncodedImage: enc, Path: outputPath}, nil
}

// === Editing Handlers ===

type addProductArgs struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
}

func (s *Server) handleAddProduct(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a addProductArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		draft := planogram.ProductDraft{SKU: a.SKU, Name: a.Name, Quantity: a.Quantity}
		prod, err := e.AddProduct(draft, geometry.Point{X: a.X, Y: a.Y})
		if err != nil {
			return nil, err
		}
		res := stateOf(e)
		res.Product = &prod
		return res, nil
	})
}

type moveProductArgs struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

func (s *Server) handleMoveProduct(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a moveProductArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ProductID == "" {
		return nil, invalidParams("product_id is required")
	}
	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		if err := e.MoveProduct(a.ProductID, geometry.Point{X: a.X, Y: a.Y}); err != nil {
			return nil, err
		}
		return stateOf(e), nil
	})
}

type productArgs struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
}

func (s *Server) handleRemoveProduct(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a productArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ProductID == "" {
		return nil, invalidParams("product_id is required")
	}
	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		if err := e.RemoveProduct(a.ProductID); err != nil {
			return nil, err
		}
		return stateOf(e), nil
	})
}

type updateProductArgs struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	SKU       *string `json:"sku"`
	Name      *string `json:"name"`
	Quantity  *int    `json:"quantity"`
}

func (s *Server) handleUpdateProduct(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a updateProductArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ProductID == "" {
		return nil, invalidParams("product_id is required")
	}
	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		upd := planogram.ProductUpdate{SKU: a.SKU, Name: a.Name, Quantity: a.Quantity}
		if err := e.UpdateProduct(a.ProductID, upd); err != nil {
			return nil, err
		}
		return stateOf(e), nil
	})
}

func (s *Server) handleUndo(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a idArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		changed := e.Undo()
		res := stateOf(e)
		res.Changed = &changed
		return res, nil
	})
}

func (s *Server) handleRedo(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a idArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		changed := e.Redo()
		res := stateOf(e)
		res.Changed = &changed
		return res, nil
	})
}

type productAtArgs struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

type productAtResult struct {
	Product *planogram.Product `json:"product"`
	Level   *int               `json:"level,omitempty"`
	Column  *int               `json:"column,omitempty"`
}

func (s *Server) handleProductAt(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a productAtArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		p := e.Planogram()
		prod, ok := p.ProductAt(a.X, a.Y)
		if !ok {
			return &productAtResult{}, nil
		}
		level, column := p.SlotOf(prod)
		return &productAtResult{Product: &prod, Level: &level, Column: &column}, nil
	})
}

// === Shelf Analysis Handlers ===

type detectArgs struct {
	Path                string   `json:"path"`
	Detector            string   `json:"detector"`
	OCR                 bool     `json:"ocr"`
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
	IOUThreshold        *float64 `json:"iou_threshold"`
}

// detect loads the photo at a.Path, runs the chosen detector and, when asked,
// fills missing labels by OCR.
func (s *Server) detect(ctx context.Context, a detectArgs) (image.Image, []detection.Detection, error) {
	if a.Path == "" {
		return nil, nil, invalidParams("path is required")
	}
	d, err := s.detector(a.Detector)
	if err != nil {
		return nil, nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, nil, err
	}

	dets, err := d.Detect(ctx, img)
	if err != nil {
		return nil, nil, fmt.Errorf("detection failed: %w", err)
	}
	if a.OCR {
		if s.labeler == nil {
			return nil, nil, errors.New("OCR labeling is not configured")
		}
		if dets, err = detection.Label(ctx, img, dets, s.labeler); err != nil {
			return nil, nil, err
		}
	}
	if s.debug {
		b := img.Bounds()
		log.Printf("detected %d boxes in %s (%dx%d)", len(dets), a.Path, b.Dx(), b.Dy())
	}
	return img, dets, nil
}

// processOptions returns the server thresholds with any per-call overrides.
func (s *Server) processOptions(a detectArgs) detection.Options {
	opts := s.detection
	if a.ConfidenceThreshold != nil {
		opts.ConfidenceThreshold = *a.ConfidenceThreshold
	}
	if a.IOUThreshold != nil {
		opts.IOUThreshold = *a.IOUThreshold
	}
	return opts
}

// forPlanogram snaps observations to p's slot grid and clamps them to its size.
func forPlanogram(opts detection.Options, p planogram.Planogram) detection.Options {
	opts.SlotWidth = p.Metadata.SlotWidth
	opts.SlotHeight = p.Metadata.SlotHeight
	opts.BoundsWidth = p.Width
	opts.BoundsHeight = p.Height
	return opts
}

type shelfDetectArgs struct {
	detectArgs
	SlotWidth  float64 `json:"slot_width"`
	SlotHeight float64 `json:"slot_height"`
	GridSize   float64 `json:"grid_size"`
}

type shelfDetectResult struct {
	Width        int                     `json:"width"`
	Height       int                     `json:"height"`
	Raw          int                     `json:"raw_detections"`
	Observations []detection.Observation `json:"observations"`
	Summary      detection.Summary       `json:"summary"`
	Shelves      []detection.Shelf       `json:"shelves"`
}

func (s *Server) handleShelfDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a shelfDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	_, dets, err := s.detect(ctx, a.detectArgs)
	if err != nil {
		return nil, err
	}

	opts := s.processOptions(a.detectArgs)
	opts.SlotWidth = a.SlotWidth
	opts.SlotHeight = a.SlotHeight
	opts.GridSize = a.GridSize
	obs := detection.Process(dets, opts)

	dims, err := imaging.GetDimensions(s.cache, a.Path)
	if err != nil {
		return nil, err
	}
	return &shelfDetectResult{
		Width:        dims.Width,
		Height:       dims.Height,
		Raw:          len(dets),
		Observations: obs,
		Summary:      detection.Summarize(obs),
		Shelves:      detection.EstimateShelves(obs),
	}, nil
}

type shelfAnalyzeArgs struct {
	ID string `json:"id"`
	detectArgs
}

func (s *Server) handleShelfAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a shelfAnalyzeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		_, dets, err := s.detect(ctx, a.detectArgs)
		if err != nil {
			return nil, err
		}
		res := s.reanalyze(e, dets, s.processOptions(a.detectArgs))

		// The observations now live in the session; the photo is reloaded
		// if shelf_annotate asks for it.
		s.cache.Evict(a.Path)
		if s.debug {
			log.Printf("analysed %s: %d photos cached", a.Path, s.cache.Len())
		}
		return res, nil
	})
}

type shelfReanalyzeArgs struct {
	ID                  string                `json:"id"`
	Detections          []detection.Detection `json:"detections"`
	ConfidenceThreshold *float64              `json:"confidence_threshold"`
	IOUThreshold        *float64              `json:"iou_threshold"`
}

// handleShelfReanalyze reconciles caller-supplied detections, for example
// from an external model, against the session's planogram.
func (s *Server) handleShelfReanalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a shelfReanalyzeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	opts := s.processOptions(detectArgs{ConfidenceThreshold: a.ConfidenceThreshold, IOUThreshold: a.IOUThreshold})
	return s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
		return s.reanalyze(e, a.Detections, opts), nil
	})
}

func (s *Server) reanalyze(e *editor.Editor, dets []detection.Detection, opts detection.Options) *StateResult {
	obs := detection.Process(dets, forPlanogram(opts, e.Planogram()))
	r := e.Reanalyze(obs)
	if s.debug {
		log.Printf("reconciled %d observations: score %.1f, %d discrepancies",
			len(obs), r.Score, len(r.Discrepancies))
	}

	summary := detection.Summarize(obs)
	res := stateOf(e)
	res.Summary = &summary
	res.Shelves = detection.EstimateShelves(obs)
	return res
}

type shelfAnnotateArgs struct {
	Path         string                  `json:"path"`
	ID           string                  `json:"id"`
	Observations []detection.Observation `json:"observations"`
	OutputPath   string                  `json:"output_path"`
}

func (s *Server) handleShelfAnnotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a shelfAnnotateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, invalidParams("path is required")
	}

	obs := a.Observations
	if len(obs) == 0 && a.ID != "" {
		st, err := s.withSession(ctx, a.ID, func(e *editor.Editor) (interface{}, error) {
			return e.State(), nil
		})
		if err != nil {
			return nil, err
		}
		obs = st.(editor.State).Observations
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return encodeImage(imaging.AnnotateObservations(img, obs), a.OutputPath)
}

// discrepancyCounts tallies discrepancies by type.
func discrepancyCounts(ds []compliance.Discrepancy) map[compliance.Type]int {
	counts := make(map[compliance.Type]int)
	for _, d := range ds {
		counts[d.Type]++
	}
	return counts
}
