package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fractree/fractree/internal/auth"
	"github.com/fractree/fractree/internal/document"
	"github.com/fractree/fractree/internal/export"
	"github.com/fractree/fractree/internal/store"
)

const maxBodySize = 64 << 10

type Handler struct {
	service *Service
	auth    *auth.Service
	export  *export.Handler
}

func NewHandler(service *Service, authService *auth.Service, exportHandler *export.Handler) *Handler {
	return &Handler{service: service, auth: authService, export: exportHandler}
}

// Routes registers the tree endpoints on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/render.{format}", h.export.RenderQuery).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/trees", h.Create).Methods("POST")
	api.HandleFunc("/trees/{treeId}", h.Get).Methods("GET")
	api.HandleFunc("/trees/{treeId}/render.{format}", h.Render).Methods("GET")

	edit := api.NewRoute().Subrouter()
	edit.Use(h.auth.RequireEditToken)
	edit.HandleFunc("/trees/{treeId}", h.Update).Methods("PUT")
	edit.HandleFunc("/trees/{treeId}", h.Delete).Methods("DELETE")
	edit.HandleFunc("/trees/{treeId}/token", h.RefreshToken).Methods("POST")
}

type treeResponse struct {
	Tree       document.TreeDocument `json:"tree"`
	ShareQuery string                `json:"shareQuery"`
}

// decodeTree reads a document from a JSON body. Fields missing from the
// body keep the defaults.
func decodeTree(w http.ResponseWriter, r *http.Request) (document.TreeDocument, error) {
	doc := document.NewDefaultDocument()
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return doc, nil
		}
		return document.TreeDocument{}, err
	}
	return doc, nil
}

// Create saves a tree from a JSON body, or from the share query when the
// body is empty.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeTree(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	doc = document.FromQuery(r.URL.Query(), doc)

	result, err := h.service.Create(r.Context(), doc)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	treeID := mux.Vars(r)["treeId"]

	doc, err := h.service.Get(r.Context(), treeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, treeResponse{Tree: doc, ShareQuery: doc.Encode()})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	treeID := mux.Vars(r)["treeId"]

	doc, err := decodeTree(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := h.service.Update(r.Context(), treeID, doc)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, treeResponse{Tree: updated, ShareQuery: updated.Encode()})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	treeID := mux.Vars(r)["treeId"]

	if err := h.service.Delete(r.Context(), treeID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	treeID := auth.TreeIDFromContext(r.Context())

	token, err := h.service.RefreshToken(r.Context(), treeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"editToken": token})
}

// Render exports a saved tree as JSON, SVG or PNG.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	treeID := mux.Vars(r)["treeId"]

	doc, err := h.service.Get(r.Context(), treeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.export.Serve(w, r, doc)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, store.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "tree was changed, reload and retry"})
	case errors.Is(err, ErrInvalidTree):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
