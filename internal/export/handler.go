package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fractree/fractree/internal/document"
	"github.com/fractree/fractree/internal/engine"
)

// Handler serves rendered trees over HTTP. The format comes from the
// {format} route variable; width, height and depth from the query string.
type Handler struct {
	maxSize  int
	maxDepth int
	observer engine.Observer
}

// NewHandler creates a Handler that refuses images larger than maxSize on
// either side and renders at most maxDepth generations. observer may be nil.
func NewHandler(maxSize, maxDepth int, observer engine.Observer) *Handler {
	return &Handler{maxSize: maxSize, maxDepth: engine.ClampDepth(maxDepth), observer: observer}
}

// RenderQuery renders the tree encoded in the request's query string, on
// top of the default tree.
func (h *Handler) RenderQuery(w http.ResponseWriter, r *http.Request) {
	doc := document.FromQuery(r.URL.Query(), document.NewDefaultDocument())
	h.Serve(w, r, doc)
}

// Serve renders doc in the format requested by r.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, doc document.TreeDocument) {
	format, err := ParseFormat(mux.Vars(r)["format"])
	if err != nil {
		http.Error(w, "invalid format: must be json, svg, or png", http.StatusBadRequest)
		return
	}

	opts, depth, err := h.parseOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sc := SceneFromDocument(doc, depth)
	sc.Observer = h.observer

	var buf bytes.Buffer
	if err := Write(&buf, format, sc, opts); err != nil {
		slog.Error("render failed", "format", format, "tree", doc.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.%s"`, fileName(doc.Name), format))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *Handler) parseOptions(r *http.Request) (Options, int, error) {
	q := r.URL.Query()
	opts := DefaultOptions()
	depth := h.maxDepth

	size := func(key string, dst *int) error {
		v := q.Get(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > h.maxSize {
			return fmt.Errorf("%s must be between 1 and %d", key, h.maxSize)
		}
		*dst = n
		return nil
	}
	if err := size("width", &opts.Width); err != nil {
		return Options{}, 0, err
	}
	if err := size("height", &opts.Height); err != nil {
		return Options{}, 0, err
	}

	if v := q.Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > h.maxDepth {
			return Options{}, 0, fmt.Errorf("depth must be between 0 and %d", h.maxDepth)
		}
		depth = n
	}
	return opts, depth, nil
}

// fileName reduces name to characters safe in a header.
func fileName(name string) string {
	if name == "" {
		return "tree"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
