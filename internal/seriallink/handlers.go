package seriallink

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tailscale.com/tsweb"
)

// StatusProvider is implemented by Manager and DisabledLink.
type StatusProvider interface {
	Status() Status
}

// AttachAdminRoutes attaches link debugging endpoints to the given HTTP mux
// served at /debug/. These routes are accessible only over localhost and are
// not publicly accessible.
func AttachAdminRoutes(mux *http.ServeMux, link StatusProvider) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("serial", "serial link state", func(w http.ResponseWriter, r *http.Request) {
		s := link.Status()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "state:     %s\n", s.State)
		fmt.Fprintf(w, "device:    %s\n", s.Device)
		fmt.Fprintf(w, "path:      %s\n", s.Path)
		fmt.Fprintf(w, "session:   %s\n", s.SessionID)
		fmt.Fprintf(w, "connects:  %d\n", s.Connects)
		fmt.Fprintf(w, "failures:  %d\n", s.Failures)
		fmt.Fprintf(w, "frames:    %d\n", s.Frames)
		if s.LastError != "" {
			fmt.Fprintf(w, "last error: %s\n", s.LastError)
		}
	})

	debug.HandleSilentFunc("serial.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(link.Status()); err != nil {
			http.Error(w, "Failed to encode status", http.StatusInternalServerError)
		}
	})
}
