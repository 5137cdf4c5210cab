// Package server implements the MCP (Model Context Protocol) server for
// planogram compliance.
//
// This package provides a JSON-RPC 2.0 server that exposes the planogram
// editor and shelf analysis through the MCP protocol, plus an optional HTTP
// surface that calls the same tools.
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
// Planogram lifecycle:
//   - planogram_create, planogram_load, planogram_import
//   - planogram_get, planogram_list, planogram_save, planogram_delete
//   - planogram_export: canonical JSON
//   - planogram_render: PNG of the layout coloured by compliance status
//
// Editing (each edit is undoable):
//   - planogram_add_product, planogram_move_product
//   - planogram_remove_product, planogram_update_product
//   - planogram_undo, planogram_redo
//   - planogram_product_at: hit test
//
// Shelf analysis:
//   - shelf_detect: run a detector and postprocess its output
//   - shelf_analyze: detect and reconcile against a planogram
//   - shelf_reanalyze: reconcile caller-supplied detections
//   - shelf_annotate: draw observations on the photo
//
// # Sessions
//
// Each planogram being edited has a session holding its editor and undo
// history. Sessions are keyed by planogram id and opened on first use from
// the repository. Calls on one planogram run one at a time; calls on
// different planograms run concurrently. Sessions live until the process
// exits or the planogram is deleted. Edits are not stored until
// planogram_save.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32602 for missing or malformed arguments and unknown tools,
//     -32000 for any other tool failure, -32601 for unknown methods
//   - message: Human-readable error description
//   - data: The Go error string
//
// Over HTTP the same errors map to 400 (invalid arguments or planogram),
// 404 (unknown tool or planogram), 409 (slot occupied or id taken) and 500.
//
// # Usage
//
//	srv := server.New(server.Options{Repository: repo})
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
