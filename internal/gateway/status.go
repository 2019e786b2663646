package gateway

import (
	"runtime"
	"time"

	"stockdash/internal/dashboard"
	"stockdash/internal/markethours"
)

// RuntimeStats is process resource usage.
type RuntimeStats struct {
	Goroutines  int     `json:"goroutines"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	SysMB       float64 `json:"sys_mb"`
	GCRuns      uint32  `json:"gc_runs"`
	CPUCores    int     `json:"cpu_cores"`
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	UptimeSec int64                     `json:"uptime_sec"`
	WSClients int                       `json:"ws_clients"`
	Source    string                    `json:"source"`
	Render    map[string]LatencySummary `json:"render_latency"` // by transport
	Market    markethours.Status        `json:"market"`
	Settings  dashboard.Settings        `json:"settings"`
	Runtime   RuntimeStats              `json:"runtime"`
	TS        string                    `json:"ts"`
}

// CollectStatus gathers the hub's view of the process.
func CollectStatus(h *Hub, now time.Time) StatusResponse {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return StatusResponse{
		UptimeSec: int64(h.Uptime().Seconds()),
		WSClients: h.ClientCount(),
		Source:    h.Svc.Source(),
		Render:    h.Latency.Summary(),
		Market:    markethours.StatusAt(now),
		Settings:  h.Svc.Settings(),
		Runtime: RuntimeStats{
			Goroutines:  runtime.NumGoroutine(),
			HeapAllocMB: float64(mem.HeapAlloc) / 1024 / 1024,
			SysMB:       float64(mem.Sys) / 1024 / 1024,
			GCRuns:      mem.NumGC,
			CPUCores:    runtime.NumCPU(),
		},
		TS: now.UTC().Format(time.RFC3339Nano),
	}
}
