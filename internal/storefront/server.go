package storefront

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"storefront/internal/catalog"
	"storefront/internal/render"
)

type Server struct {
	controller *Controller
	renderer   *render.Renderer
	inquiries  http.Handler
}

func NewServer(controller *Controller, renderer *render.Renderer, inquiries http.Handler) *Server {
	return &Server{controller: controller, renderer: renderer, inquiries: inquiries}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /products", s.handleGrid)
	mux.HandleFunc("GET /api/products", s.handleAPI)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.Handle("GET /inquire", s.inquiries)
}

// view is one request's look at the catalog.
type view struct {
	state    *catalog.State
	status   Status
	products []catalog.Product
}

func (s *Server) view(r *http.Request) view {
	ctx := r.Context()
	// Before the background loop finishes its first pass, load inline like a page load would.
	if s.controller.Status() == StatusLoading {
		if err := s.controller.Refresh(ctx); err != nil {
			slog.WarnContext(ctx, "refresh on request failed", "error", err)
		}
	}

	state := s.controller.State()
	state.SetFilter(r.URL.Query().Get("category"))
	state.SetSearch(r.URL.Query().Get("q"))
	return view{
		state:    state,
		status:   s.controller.Status(),
		products: state.ComputeVisible(),
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	v := s.view(r)
	var buf bytes.Buffer
	err := s.renderer.Page(&buf, render.PageData{
		Categories: v.state.Categories(),
		Category:   v.state.Filter(),
		Search:     v.state.Search(),
		Products:   v.products,
		LoadFailed: v.status == StatusError,
		Stale:      v.status == StatusStale,
	})
	s.write(w, r, &buf, err)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	v := s.view(r)
	var buf bytes.Buffer
	var err error
	if v.status == StatusError {
		err = s.renderer.LoadError(&buf)
	} else {
		err = s.renderer.Grid(&buf, v.products)
	}
	s.write(w, r, &buf, err)
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, buf *bytes.Buffer, err error) {
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to render storefront", "path", r.URL.Path, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}

type productsResponse struct {
	Status Status `json:"status"`
	// Version changes whenever a fetch result or fallback is applied, so clients can
	// skip redrawing an unchanged catalog.
	Version  uint64            `json:"version"`
	Error    string            `json:"error,omitempty"`
	Category string            `json:"category"`
	Search   string            `json:"search,omitempty"`
	Total    int               `json:"total"`
	Count    int               `json:"count"`
	Products []catalog.Product `json:"products"`
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	v := s.view(r)
	products := v.products
	if v.status == StatusError || products == nil {
		products = []catalog.Product{}
	}
	resp := productsResponse{
		Status:   v.status,
		Version:  s.controller.Version(),
		Category: v.state.Filter(),
		Search:   v.state.Search(),
		Total:    v.state.Len(),
		Count:    len(products),
		Products: products,
	}
	if err := s.controller.LastError(); err != nil {
		resp.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if v.status == StatusError {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode products", "error", err)
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Refresh(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "manual refresh failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
