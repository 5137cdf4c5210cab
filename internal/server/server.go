package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/ironsheep/planogram-mcp/internal/detection"
	"github.com/ironsheep/planogram-mcp/internal/editor"
	"github.com/ironsheep/planogram-mcp/internal/imaging"
	"github.com/ironsheep/planogram-mcp/internal/planogram"
	"github.com/ironsheep/planogram-mcp/internal/store"
)

// Name and Version are reported in the initialize handshake.
const (
	Name    = "planogram-mcp"
	Version = "0.1.0"
)

// Layout is the grid used for planograms created without explicit sizes.
type Layout struct {
	Levels        int
	SlotsPerLevel int
	SlotWidth     float64
	SlotHeight    float64
	GridSize      float64
}

// DefaultLayout matches the shelf editor's new-planogram dialog.
func DefaultLayout() Layout {
	return Layout{
		Levels:        planogram.DefaultLevels,
		SlotsPerLevel: planogram.DefaultSlotsPerLevel,
		SlotWidth:     planogram.DefaultSlotWidth,
		SlotHeight:    planogram.DefaultSlotHeight,
		GridSize:      planogram.DefaultGridSize,
	}
}

// Options configures a Server. Zero values fall back to the defaults used
// by New.
type Options struct {
	Repository store.Repository

	// Detectors are selectable by name in the shelf tools. DefaultDetector
	// names the one used when a call does not pick.
	Detectors       map[string]detection.Detector
	DefaultDetector string

	// Labeler fills missing labels when a call asks for OCR. Nil disables it.
	Labeler detection.Labeler

	Detection detection.Options
	Layout    Layout

	// ImageCacheSize bounds the decoded photos kept between calls.
	ImageCacheSize int

	Debug bool
}

// Server handles MCP protocol communication
type Server struct {
	cache *imaging.ImageCache
	repo  store.Repository

	detectors       map[string]detection.Detector
	defaultDetector string
	labeler         detection.Labeler

	detection detection.Options
	layout    Layout
	debug     bool

	mu       sync.Mutex
	sessions map[string]*session
}

// session is one open planogram. Tool calls on the same planogram are
// serialized by mu; the editor itself is not safe for concurrent use.
type session struct {
	mu     sync.Mutex
	editor *editor.Editor
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a server. opts.Repository is required.
func New(opts Options) *Server {
	s := &Server{
		cache:           imaging.NewImageCache(opts.ImageCacheSize),
		repo:            opts.Repository,
		detectors:       opts.Detectors,
		defaultDetector: opts.DefaultDetector,
		labeler:         opts.Labeler,
		detection:       opts.Detection,
		layout:          opts.Layout,
		debug:           opts.Debug,
		sessions:        make(map[string]*session),
	}

	if len(s.detectors) == 0 {
		s.detectors = map[string]detection.Detector{
			"simulated": detection.NewSimulatedDetector(1),
			"edge":      detection.NewEdgeDetector(),
		}
	}
	if _, ok := s.detectors[s.defaultDetector]; !ok {
		s.defaultDetector = "simulated"
	}
	if s.detection.ConfidenceThreshold == 0 && s.detection.IOUThreshold == 0 {
		s.detection = detection.DefaultOptions()
	}
	if s.layout == (Layout{}) {
		s.layout = DefaultLayout()
	}
	return s
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(context.Background(), os.Stdin, os.Stdout)
}

// Serve answers newline-delimited JSON-RPC requests from r on w until r is
// exhausted.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("Failed to parse request: %v", err)
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				log.Printf("Failed to encode response: %v", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	if s.debug {
		log.Printf("request %v: %s", req.ID, req.Method)
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    Name,
				"version": Version,
			},
		},
	}
}

func (s *Server) newSession(p planogram.Planogram) *session {
	sess := &session{editor: editor.New(p)}
	if s.debug {
		id := p.ID
		sess.editor.Subscribe(func(st editor.State) {
			log.Printf("planogram %s: %d products, history %d/%d", id,
				len(st.Planogram.Products), st.HistoryIndex+1, st.HistoryLength)
		})
	}
	return sess
}

// open installs p as the session for its id, replacing any previous one.
func (s *Server) open(p planogram.Planogram) *session {
	sess := s.newSession(p)

	s.mu.Lock()
	s.sessions[p.ID] = sess
	s.mu.Unlock()
	return sess
}

// session returns the open session for id, loading the planogram from the
// repository on first use.
func (s *Server) session(ctx context.Context, id string) (*session, error) {
	if id == "" {
		return nil, invalidParams("id is required")
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another call may have opened it while the repository was read.
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	sess = s.newSession(*p)
	s.sessions[id] = sess
	return sess, nil
}

// withSession runs fn holding the session's lock.
func (s *Server) withSession(ctx context.Context, id string, fn func(e *editor.Editor) (interface{}, error)) (interface{}, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess.editor)
}

// detector returns the named detector, or the default one for an empty name.
func (s *Server) detector(name string) (detection.Detector, error) {
	if name == "" {
		name = s.defaultDetector
	}
	d, ok := s.detectors[name]
	if !ok {
		return nil, invalidParams(fmt.Sprintf("unknown detector %q", name))
	}
	return d, nil
}
