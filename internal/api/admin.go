package api

import (
	"net/http"

	"tailscale.com/tsweb"

	"github.com/banshee-data/arctic.bridge/internal/bridge"
	"github.com/banshee-data/arctic.bridge/internal/httputil"
	"github.com/banshee-data/arctic.bridge/internal/network"
	"github.com/banshee-data/arctic.bridge/internal/seriallink"
	"github.com/banshee-data/arctic.bridge/internal/version"
)

// StatsProvider reports cumulative packet counters.
type StatsProvider interface {
	Snapshot() network.StatsSnapshot
}

// BridgeStatusProvider reports the last translated frame.
type BridgeStatusProvider interface {
	Status() bridge.Status
}

// DebugSources collects what the debug routes report. Nil fields are
// skipped.
type DebugSources struct {
	Link   seriallink.StatusProvider
	Stats  StatsProvider
	Bridge BridgeStatusProvider
}

// AttachAdminRoutes attaches bridge debugging endpoints to the given HTTP mux
// served at /debug/. These routes are accessible only over localhost.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux, src DebugSources) {
	debug := tsweb.Debugger(mux)

	debug.KV("Version", version.Version)
	debug.KV("Git SHA", version.GitSHA)
	debug.KV("Build time", version.BuildTime)

	if src.Link != nil {
		seriallink.AttachAdminRoutes(mux, src.Link)
	}

	if src.Stats != nil {
		debug.HandleFunc("stats", "realtime packet counters", jsonGET(func() any {
			return src.Stats.Snapshot()
		}))
	}

	if src.Bridge != nil {
		debug.HandleFunc("bridge", "last translated frame", jsonGET(func() any {
			return src.Bridge.Status()
		}))
	}

	debug.HandleSilentFunc("info", jsonGET(func() any { return s.info }))
}

func jsonGET(snapshot func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		httputil.WriteJSONOK(w, snapshot())
	}
}
