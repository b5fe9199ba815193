// Package server provides the HTTP server and routing for Insight.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/insight/internal/database"
)

// SystemHandlers handles system monitoring endpoints.
type SystemHandlers struct {
	log           zerolog.Logger
	dataDir       string
	startupTime   time.Time
	evaluationsDB *database.DB
	cacheDB       *database.DB
}

// NewSystemHandlers creates system monitoring handlers.
func NewSystemHandlers(log zerolog.Logger, dataDir string, evaluationsDB, cacheDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:           log.With().Str("component", "system_handlers").Logger(),
		dataDir:       dataDir,
		startupTime:   time.Now(),
		evaluationsDB: evaluationsDB,
		cacheDB:       cacheDB,
	}
}

// HandleHealth handles GET /health requests. Returns 200 when both
// databases pass an integrity check, 503 otherwise.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{}
	healthy := true

	for _, db := range []*database.DB{h.evaluationsDB, h.cacheDB} {
		if db == nil {
			continue
		}
		if err := db.QuickCheck(ctx); err != nil {
			checks[db.Name()] = err.Error()
			healthy = false
		} else {
			checks[db.Name()] = "ok"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}

	h.writeJSON(w, status, map[string]interface{}{
		"status":    state,
		"databases": checks,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleStatus handles GET /api/system/status requests.
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime_seconds": int64(time.Since(h.startupTime).Seconds()),
		"started_at":     h.startupTime.Format(time.RFC3339),
		"cpu_percent":    cpuPercent,
		"ram_percent":    ramPercent,
		"data_dir":       h.dataDir,
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// HandleDatabaseStats handles GET /api/system/databases requests.
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	result := map[string]interface{}{}

	for _, db := range []*database.DB{h.evaluationsDB, h.cacheDB} {
		if db == nil {
			continue
		}
		stats, err := db.GetStats()
		if err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Failed to collect database stats")
			result[db.Name()] = map[string]interface{}{"error": err.Error()}
			continue
		}
		result[db.Name()] = map[string]interface{}{
			"size_bytes":     stats.SizeBytes,
			"wal_size_bytes": stats.WALSizeBytes,
			"page_count":     stats.PageCount,
			"page_size":      stats.PageSize,
			"freelist_count": stats.FreelistCount,
		}
	}

	h.writeJSON(w, http.StatusOK, result)
}

// getSystemStats returns current CPU and RAM usage percentages.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to read CPU usage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to read memory usage")
		memStat = &mem.VirtualMemoryStat{}
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
