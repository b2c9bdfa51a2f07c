package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router stdlib http.ServeMux, handlers dispatch on the path below their prefix
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// handlePrefix registers both the bare prefix and its subtree
func (r *Router) handlePrefix(prefix string, h http.Handler) {
	r.HandleHandler(prefix, h)
	r.HandleHandler(prefix+"/", h)
}

func (r *Router) RegisterSeniorRoutes(h *SeniorHandler) {
	r.handlePrefix("/api/v1/seniors", h)
}

func (r *Router) RegisterMatchRoutes(h *MatchHandler) {
	r.handlePrefix("/api/v1/matches", h)
}

func (r *Router) RegisterVisitRoutes(h *VisitHandler) {
	r.handlePrefix("/api/v1/visits", h)
}

func (r *Router) RegisterCompanionRoutes(h *CompanionHandler) {
	r.handlePrefix("/api/v1/companions", h)
}

func (r *Router) RegisterPayoutRoutes(h *PayoutHandler) {
	r.handlePrefix("/api/v1/payouts", h)
}

func (r *Router) RegisterHealth() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}
