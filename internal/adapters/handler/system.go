package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"dealerchat/internal/core/services"
)

// SystemHandler exposes process and gateway health metrics
type SystemHandler struct {
	gatewayHealth *services.GatewayHealth
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(gatewayHealth *services.GatewayHealth) *SystemHandler {
	return &SystemHandler{
		gatewayHealth: gatewayHealth,
	}
}

// SystemMetricsResponse represents system health data
type SystemMetricsResponse struct {
	CPUPercent      float64                `json:"cpu_percent"`
	RAMUsedGB       float64                `json:"ram_used_gb"`
	RAMTotalGB      float64                `json:"ram_total_gb"`
	RAMPercent      float64                `json:"ram_percent"`
	DiskUsedGB      float64                `json:"disk_used_gb"`
	DiskTotalGB     float64                `json:"disk_total_gb"`
	DiskPercent     float64                `json:"disk_percent"`
	GoroutinesCount int                    `json:"goroutines_count"`
	Gateway         map[string]interface{} `json:"gateway"`
}

// HandleMetrics handles GET /api/system/metrics
func (h *SystemHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if handlePreflight(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	ctx := r.Context()

	// CPU usage (average over 1 second)
	cpuPercents, err := cpu.PercentWithContext(ctx, time.Second, false)
	var cpuPercent float64
	if err == nil && len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	// Memory stats
	memStat, err := mem.VirtualMemoryWithContext(ctx)
	var ramUsedGB, ramTotalGB, ramPercent float64
	if err == nil {
		ramUsedGB = float64(memStat.Used) / 1024 / 1024 / 1024
		ramTotalGB = float64(memStat.Total) / 1024 / 1024 / 1024
		ramPercent = memStat.UsedPercent
	}

	// Disk stats (root partition)
	diskStat, err := disk.UsageWithContext(ctx, ".")
	var diskUsedGB, diskTotalGB, diskPercent float64
	if err == nil {
		diskUsedGB = float64(diskStat.Used) / 1024 / 1024 / 1024
		diskTotalGB = float64(diskStat.Total) / 1024 / 1024 / 1024
		diskPercent = diskStat.UsedPercent
	}

	writeJSON(w, http.StatusOK, SystemMetricsResponse{
		CPUPercent:      roundTo2Decimals(cpuPercent),
		RAMUsedGB:       roundTo2Decimals(ramUsedGB),
		RAMTotalGB:      roundTo2Decimals(ramTotalGB),
		RAMPercent:      roundTo2Decimals(ramPercent),
		DiskUsedGB:      roundTo2Decimals(diskUsedGB),
		DiskTotalGB:     roundTo2Decimals(diskTotalGB),
		DiskPercent:     roundTo2Decimals(diskPercent),
		GoroutinesCount: runtime.NumGoroutine(),
		Gateway:         h.gatewayHealth.GetStatus(),
	})
}

func roundTo2Decimals(v float64) float64 {
	return float64(int(v*100)) / 100
}
