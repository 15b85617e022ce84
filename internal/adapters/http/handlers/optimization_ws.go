package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
)

const progressKeepalive = 30 * time.Second

// OptimizationProgressHandler streams run progress over a websocket
type OptimizationProgressHandler struct {
	upgrader  websocket.Upgrader
	optimizer *services.OptimizationService
}

func NewOptimizationProgressHandler(optimizer *services.OptimizationService, allowedOrigins []string) *OptimizationProgressHandler {
	allowedOriginsMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedOriginsMap[origin] = true
	}

	return &OptimizationProgressHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return allowedOriginsMap[origin]
			},
		},
		optimizer: optimizer,
	}
}

// Handle upgrades GET /api/v1/optimizations/{id}/progress and forwards
// progress events until the run finishes or the client disconnects.
func (h *OptimizationProgressHandler) Handle(w http.ResponseWriter, r *http.Request) {
	runID, ok := validateURLParam(r, w, "id", "Run ID")
	if !ok {
		return
	}

	run, err := h.optimizer.GetRun(r.Context(), runID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	// subscribe before upgrading so no events slip through the gap
	events, unsubscribe := h.optimizer.Publisher().Subscribe(runID)
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("progress ws: upgrade failed for run %s: %v", runID, err)
		return
	}
	defer conn.Close()

	// a terminal run yields no further events; report its state and close
	if run.Status != models.OptimizationStatusRunning {
		_ = conn.WriteJSON(map[string]any{
			"run_id":     run.ID,
			"stage":      run.Status,
			"best_score": run.BestScore,
		})
		return
	}

	keepalive := time.NewTicker(progressKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, open := <-events:
			if !open {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("progress ws: write failed for run %s: %v", runID, err)
				return
			}
			if event.Stage == "completed" || event.Stage == "failed" {
				return
			}

		case <-keepalive.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
