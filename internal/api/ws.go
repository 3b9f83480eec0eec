package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fractree/fractree/internal/auth"
	"github.com/fractree/fractree/internal/collab"
	"github.com/fractree/fractree/internal/typeid"
)

const maxDisplayName = 32

// WebSocket joins the caller to the room of a saved tree. Anyone can watch;
// a valid edit token in the token query parameter allows edits.
type WebSocket struct {
	service        *Service
	auth           *auth.Service
	hub            *collab.Hub
	originPatterns []string
}

func NewWebSocket(service *Service, authService *auth.Service, hub *collab.Hub, allowedOrigins []string) *WebSocket {
	return &WebSocket{
		service:        service,
		auth:           authService,
		hub:            hub,
		originPatterns: originPatterns(allowedOrigins),
	}
}

func (ws *WebSocket) Routes(r *mux.Router) {
	r.HandleFunc("/ws/trees/{treeId}", ws.Serve).Methods("GET")
}

func (ws *WebSocket) Serve(w http.ResponseWriter, r *http.Request) {
	treeID := mux.Vars(r)["treeId"]

	if _, err := ws.service.Get(r.Context(), treeID); err != nil {
		handleServiceError(w, err)
		return
	}

	canEdit := ws.auth.CanEdit(auth.TokenFromRequest(r), treeID)
	displayName := displayName(r.URL.Query().Get("name"))
	userID := typeid.NewAnonID()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: ws.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(ws.hub, conn, userID, displayName, treeID, uuid.New().String(), canEdit)
	if !ws.hub.Register(client) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Anonymous"
	}
	if utf8.RuneCountInString(name) > maxDisplayName {
		name = string([]rune(name)[:maxDisplayName])
	}
	return name
}

// originPatterns turns allowed origins such as http://localhost:5173 into
// the host patterns websocket.Accept matches against.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			out = append(out, "*")
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
