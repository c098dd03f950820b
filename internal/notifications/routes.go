package notifications

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts notification endpoints under /api/notifications on the given router.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Get("/pending", handlePending(store))
		r.Get("/{id}", handleGetByID(store))
		r.Post("/{id}/deliver", handleMarkDelivered(store))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := ListFilter{TeamID: q.Get("team_id")}

		if v := q.Get("type"); v != "" {
			filter.Type = EventType(v)
		}
		if v := q.Get("delivered"); v != "" {
			b, err := strconv.ParseBool(v)
			if err == nil {
				filter.Delivered = &b
			}
		}
		if v := q.Get("since"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				filter.Since = t
			}
		}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}
		if v := q.Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Offset = n
			}
		}

		notifications, err := store.List(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if notifications == nil {
			notifications = []Notification{}
		}

		writeJSON(w, http.StatusOK, notifications)
	}
}

func handleGetByID(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		n, err := store.GetByID(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if n == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, n)
	}
}

func handleMarkDelivered(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := store.MarkDelivered(r.Context(), id); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "delivered"})
	}
}

func handlePending(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notifications, err := store.GetPending(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if notifications == nil {
			notifications = []Notification{}
		}

		writeJSON(w, http.StatusOK, notifications)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
