package api

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"
)

//go:embed static
var staticFS embed.FS

// registerWebRoutes serves the dashboard and its assets
func (h *Handlers) registerWebRoutes(r *mux.Router) {
	assets, err := fs.Sub(staticFS, "static")
	if err != nil {
		h.logger.Error("failed to load web assets", "error", err)
		return
	}

	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(assets))))

	r.HandleFunc("/dashboard", h.serveDashboard).Methods("GET")
	r.HandleFunc("/ui", h.serveDashboard).Methods("GET")
	r.Handle("/", http.RedirectHandler("/dashboard", http.StatusFound)).Methods("GET")
}

func (h *Handlers) serveDashboard(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "dashboard unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}
