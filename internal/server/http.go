package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ironsheep/planogram-mcp/internal/planogram"
	"github.com/ironsheep/planogram-mcp/internal/store"
)

// Router returns the HTTP surface: a health check, the tool list, and one
// POST endpoint per tool taking the tool's arguments as the JSON body.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	router.Get("/health", s.health)
	router.Route("/api/v1/tools", func(r chi.Router) {
		r.Get("/", s.listTools)
		r.Post("/{name}", s.callTool)
	})
	return router
}

// ListenAndServe serves Router on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("HTTP transport listening on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"name":    Name,
		"version": Version,
	})
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]interface{}{"tools": GetToolDefinitions()})
}

func (s *Server) callTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		respondError(w, http.StatusBadRequest, errors.New("request body is not valid JSON"))
		return
	}

	result, err := s.executeTool(r.Context(), name, body)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respond(w, http.StatusOK, result)
}

// statusFor maps a tool error onto an HTTP status.
func statusFor(err error) int {
	var (
		pe       *paramError
		invalid  *planogram.ValidationError
		occupied *planogram.SlotOccupiedError
		notFound *planogram.NotFoundError
	)
	switch {
	case errors.Is(err, ErrUnknownTool), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &pe), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &occupied), errors.Is(err, store.ErrExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respond(w, status, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
