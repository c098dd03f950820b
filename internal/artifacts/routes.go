package artifacts

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts artifact endpoints under /api/artifacts on the given router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/artifacts", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Get("/{id}", handleDownload(store))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		teamID, sessionID := q.Get("team_id"), q.Get("session_id")
		if teamID == "" || sessionID == "" {
			http.Error(w, "team_id and session_id are required", http.StatusBadRequest)
			return
		}

		records, err := store.ListBySession(r.Context(), teamID, sessionID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []Record{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleDownload(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		rec, err := store.Get(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if rec == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename))
		w.WriteHeader(http.StatusOK)
		w.Write(rec.Content)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
