package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/hilthontt/nodeline/internal/infrastructure/json"
)

var startTime = time.Now()

// Probe checks one dependency, such as a database ping.
type Probe func(ctx context.Context) error

type Handler struct {
	probes map[string]Probe
}

func NewHandler(probes map[string]Probe) *Handler {
	if probes == nil {
		probes = map[string]Probe{}
	}
	return &Handler{probes: probes}
}

// GetHealth is the liveness check; it never touches dependencies.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	json.Write(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	})
}

// GetReady runs every probe and reports 503 if any fails.
func (h *Handler) GetReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Checks:    make(map[string]string, len(names)),
	}
	status := http.StatusOK
	for _, name := range names {
		if err := h.probes[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	json.Write(w, status, resp)
}
