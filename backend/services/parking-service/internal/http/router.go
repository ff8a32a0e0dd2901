package httpserver

import (
	"net/http"
	"sort"
	"strings"
)

const apiPrefix = "/api"

// Routes groups handlers.
type Routes struct {
	OpenSession    http.HandlerFunc
	ListSessions   http.HandlerFunc
	GetSession     http.HandlerFunc
	ExitByPlate    http.HandlerFunc
	ExitByID       http.HandlerFunc
	Statistics     http.HandlerFunc
	CurrentParking http.HandlerFunc
	CameraDetect   http.HandlerFunc
	CameraEntry    http.HandlerFunc
	CameraExit     http.HandlerFunc
	AIHealth       http.HandlerFunc
	SessionsFeed   http.HandlerFunc
	ListBlocks     http.HandlerFunc
	CreateBlock    http.HandlerFunc
	ListLanes      http.HandlerFunc
	CreateLane     http.HandlerFunc
	Health         http.HandlerFunc
}

// NewRouter registers endpoints. Every route is also reachable under /api.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, h)
		mux.Handle(apiPrefix+pattern, h)
	}

	if sessions := pair(routes.ListSessions, routes.OpenSession); len(sessions) > 0 {
		handle("/sessions", methods(sessions))
	}
	if routes.GetSession != nil {
		handle("/sessions/{id}", method(http.MethodGet, routes.GetSession))
	}
	if routes.ExitByPlate != nil {
		handle("/sessions/{plate}/exit", method(http.MethodPost, routes.ExitByPlate))
	}
	if routes.ExitByID != nil {
		handle("/sessions/by-id/{id}/exit", method(http.MethodPost, routes.ExitByID))
	}
	if routes.Statistics != nil {
		handle("/dashboard/statistics", method(http.MethodGet, routes.Statistics))
	}
	if routes.CurrentParking != nil {
		handle("/dashboard/current-parking", method(http.MethodGet, routes.CurrentParking))
	}
	if routes.CameraDetect != nil {
		handle("/camera/detect", method(http.MethodPost, routes.CameraDetect))
	}
	if routes.CameraEntry != nil {
		handle("/camera/entry", method(http.MethodPost, routes.CameraEntry))
	}
	if routes.CameraExit != nil {
		handle("/camera/exit", method(http.MethodPost, routes.CameraExit))
	}
	if routes.AIHealth != nil {
		handle("/camera/ai-health", method(http.MethodGet, routes.AIHealth))
	}
	if routes.SessionsFeed != nil {
		handle("/ws/sessions", method(http.MethodGet, routes.SessionsFeed))
	}
	if blocks := pair(routes.ListBlocks, routes.CreateBlock); len(blocks) > 0 {
		handle("/blocks", methods(blocks))
	}
	if lanes := pair(routes.ListLanes, routes.CreateLane); len(lanes) > 0 {
		handle("/lanes", methods(lanes))
	}
	if routes.Health != nil {
		handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

// pair maps a collection's GET and POST handlers, skipping nil ones.
func pair(get, post http.HandlerFunc) map[string]http.HandlerFunc {
	out := map[string]http.HandlerFunc{}
	if get != nil {
		out[http.MethodGet] = get
	}
	if post != nil {
		out[http.MethodPost] = post
	}
	return out
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return methods(map[string]http.HandlerFunc{expected: handler})
}

func methods(handlers map[string]http.HandlerFunc) http.HandlerFunc {
	allowed := make([]string, 0, len(handlers))
	for m := range handlers {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	return func(w http.ResponseWriter, r *http.Request) {
		handler, ok := handlers[r.Method]
		if !ok {
			w.Header().Set("Allow", allow)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
