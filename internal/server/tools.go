package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var idProperty = map[string]interface{}{
	"type":        "string",
	"description": "Planogram id",
}

var productIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "Product id within the planogram",
}

var detectorProperties = map[string]interface{}{
	"path": map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the shelf photo",
	},
	"detector": map[string]interface{}{
		"type":        "string",
		"description": "Detector to run: simulated, edge or remote (when configured). Defaults to the server's default detector.",
	},
	"ocr": map[string]interface{}{
		"type":        "boolean",
		"description": "Read shelf-label text to name detections that have no label",
		"default":     false,
	},
	"confidence_threshold": map[string]interface{}{
		"type":        "number",
		"description": "Drop detections at or below this confidence. Default 0.6",
	},
	"iou_threshold": map[string]interface{}{
		"type":        "number",
		"description": "Suppress detections overlapping a stronger one above this IoU. Default 0.4",
	},
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	props := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		props[k] = v
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Planogram Lifecycle
		{
			Name:        "planogram_create",
			Description: "Create an empty planogram with the given shelf grid, store it, and open it for editing. Returns the planogram state including its new id.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name":            map[string]interface{}{"type": "string", "description": "Display name. Default 'New Planogram'"},
					"store_id":        map[string]interface{}{"type": "string", "description": "Store the shelf belongs to"},
					"shelf_id":        map[string]interface{}{"type": "string", "description": "Shelf or bay identifier"},
					"levels":          map[string]interface{}{"type": "integer", "description": "Number of shelf levels. Default 5"},
					"slots_per_level": map[string]interface{}{"type": "integer", "description": "Slots per level. Default 12"},
					"slot_width":      map[string]interface{}{"type": "number", "description": "Slot width in pixels. Default 60"},
					"slot_height":     map[string]interface{}{"type": "number", "description": "Slot height in pixels. Default 80"},
					"grid_size":       map[string]interface{}{"type": "number", "description": "Editor grid size. Default 20"},
				},
			},
		},
		{
			Name:        "planogram_load",
			Description: "Load a stored planogram into a fresh editing session. Any open session for the same id and its undo history are discarded.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"id": idProperty},
				"required":   []string{"id"},
			},
		},
		{
			Name:        "planogram_import",
			Description: "Open a planogram from its exported JSON, given inline or as a file path. The document is validated before it is accepted.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"json": map[string]interface{}{"type": "string", "description": "Planogram JSON as produced by planogram_export"},
					"path": map[string]interface{}{"type": "string", "description": "Path to a planogram JSON file (used when json is empty)"},
					"save": map[string]interface{}{"type": "boolean", "description": "Also store the planogram", "default": false},
				},
			},
		},
		{
			Name:        "planogram_get",
			Description: "Get the current state of a planogram: products, discrepancies, compliance score and undo/redo availability.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"id": idProperty},
				"required":   []string{"id"},
			},
		},
		{
			Name:        "planogram_list",
			Description: "List stored planograms, most recently modified first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"store_id": map[string]interface{}{"type": "string", "description": "Only list planograms of this store"},
				},
			},
		},
		{
			Name:        "planogram_save",
			Description: "Store the current state of an open planogram.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"id": idProperty},
				"required":   []string{"id"},
			},
		},
		{
			Name:        "planogram_delete",
			Description: "Delete a stored planogram and close its session.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"id": idProperty},
				"required":   []string{"id"},
			},
		},
		{
			Name:        "planogram_export",
			Description: "Export a planogram as indented JSON, optionally writing it to a file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id":   idProperty,
					"path": map[string]interface{}{"type": "string", "description": "Optional file to write the JSON to"},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "planogram_render",
			Description: "Render the planogram as a PNG: shelves, slot dividers, products coloured by compliance status and unmatched observations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id":                 idProperty,
					"zoom":               map[string]interface{}{"type": "number", "description": "Zoom factor between 0.5 and 2.0. Default 1.0", "default": 1.0},
					"show_grid":          map[string]interface{}{"type": "boolean", "description": "Draw slot dividers. Default true"},
					"show_labels":        map[string]interface{}{"type": "boolean", "description": "Draw product names and quantities. Default true"},
					"show_discrepancies": map[string]interface{}{"type": "boolean", "description": "Colour products by status and draw unmatched observations. Default true"},
					"output_path":        map[string]interface{}{"type": "string", "description": "Optional file to save the image to"},
				},
				"required": []string{"id"},
			},
		},

		// Editing
		{
			Name:        "planogram_add_product",
			Description: "Place a product at a position. The position snaps to the nearest slot, which must be free.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id":       idProperty,
					"x":        map[string]interface{}{"type": "number", "description": "X position in planogram pixels"},
					"y":        map[string]interface{}{"type": "number", "description": "Y position in planogram pixels"},
					"sku":      map[string]interface{}{"type": "string", "description": "Product SKU"},
					"name":     map[string]interface{}{"type": "string", "description": "Product name"},
					"quantity": map[string]interface{}{"type": "integer", "description": "Expected facings. Default 1"},
				},
				"required": []string{"id", "x", "y"},
			},
		},
		{
			Name:        "planogram_move_product",
			Description: "Move a product to another slot. Moving onto an occupied slot fails.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id":         idProperty,
					"product_id": productIDProperty,
					"x":          map[string]interface{}{"type": "number", "description": "Target X position"},
					"y":          map[string]interface{}{"type": "number", "description": "Target Y position"},
				},
				"required": []string{"id", "product_id", "x", "y"},
			},
		},
		{
			Name:        "planogram_remove_product",
			Description: "Remove a product from the planogram.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id":         idProperty,
					"product_id": productIDProperty,
				},
				"required": []string{"id", "product_id"},
			},
		},
		{
			Name:        "planogram_update_product",
			Description: "Change the SKU, name or expected quantity of a product. Omitted fields are left unchanged.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id":         idProperty,
					"product_id": productIDProperty,
					"sku":        map[string]interface{}{"type": "string"},
					"name":       map[string]interface{}{"type": "string"},
					"quantity":   map[string]interface{}{"type": "integer", "minimum": 1},
				},
				"required": []string{"id", "product_id"},
			},
		},
		{
			Name:        "planogram_undo",
			Description: "Undo the last edit. 'changed' is false when there is nothing to undo.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"id": idProperty},
				"required":   []string{"id"},
			},
		},
		{
			Name:        "planogram_redo",
			Description: "Redo the last undone edit. 'changed' is false when there is nothing to redo.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"id": idProperty},
				"required":   []string{"id"},
			},
		},
		{
			Name:        "planogram_product_at",
			Description: "Find the product whose footprint contains a point, with its shelf level and column.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty,
					"x":  map[string]interface{}{"type": "number"},
					"y":  map[string]interface{}{"type": "number"},
				},
				"required": []string{"id", "x", "y"},
			},
		},

		// Shelf Analysis
		{
			Name:        "shelf_detect",
			Description: "Detect products in a shelf photo. Detections are filtered by confidence, deduplicated by non-maximum suppression and optionally snapped to a slot grid.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectorProperties, map[string]interface{}{
					"slot_width":  map[string]interface{}{"type": "number", "description": "Slot width to snap to. Omit to keep raw positions"},
					"slot_height": map[string]interface{}{"type": "number", "description": "Slot height to snap to"},
					"grid_size":   map[string]interface{}{"type": "number", "description": "Without a slot size, round raw positions to this grid"},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "shelf_analyze",
			Description: "Detect products in a shelf photo and reconcile them against an open planogram. Returns discrepancies and the compliance score.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(detectorProperties, map[string]interface{}{
					"id": idProperty,
				}),
				"required": []string{"id", "path"},
			},
		},
		{
			Name:        "shelf_reanalyze",
			Description: "Reconcile caller-supplied detections (x, y, width, height, confidence, label, sku, quantity, mask) against an open planogram.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty,
					"detections": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":          map[string]interface{}{"type": "number"},
								"y":          map[string]interface{}{"type": "number"},
								"width":      map[string]interface{}{"type": "number"},
								"height":     map[string]interface{}{"type": "number"},
								"confidence": map[string]interface{}{"type": "number"},
								"label":      map[string]interface{}{"type": "string"},
								"sku":        map[string]interface{}{"type": "string"},
								"quantity":   map[string]interface{}{"type": "integer"},
								"mask": map[string]interface{}{
									"type":        "array",
									"description": "Optional polygon; its bounds are used when width or height is missing",
									"items": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"x": map[string]interface{}{"type": "number"},
											"y": map[string]interface{}{"type": "number"},
										},
									},
								},
							},
							"required": []string{"confidence"},
						},
					},
					"confidence_threshold": detectorProperties["confidence_threshold"],
					"iou_threshold":        detectorProperties["iou_threshold"],
				},
				"required": []string{"id", "detections"},
			},
		},
		{
			Name:        "shelf_annotate",
			Description: "Draw observation outlines and labels on a shelf photo. Uses the given observations, or the last analysis of planogram id.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":         map[string]interface{}{"type": "string", "description": "Absolute path to the shelf photo"},
					"id":           idProperty,
					"observations": map[string]interface{}{"type": "array", "description": "Observations as returned by shelf_detect"},
					"output_path":  map[string]interface{}{"type": "string", "description": "Optional file to save the image to"},
				},
				"required": []string{"path"},
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
