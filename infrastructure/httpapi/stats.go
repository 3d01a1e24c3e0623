package httpapi

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// StatsResponse aggregates store counts and process-level diagnostics.
type StatsResponse struct {
	TotalChannels int     `json:"total_channels"`
	TotalMessages int     `json:"total_messages"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	MemUsedMB     uint64  `json:"mem_used_mb"`
	MemPercent    float64 `json:"mem_percent"`
	CPUPercent    float64 `json:"cpu_percent"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalChannels, err := h.channelCounts.Count(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	totalMessages, err := h.messageCounts.Count(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	response := StatsResponse{
		TotalChannels: totalChannels,
		TotalMessages: totalMessages,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		response.MemUsedMB = vm.Used / 1024 / 1024
		response.MemPercent = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response.CPUPercent = percents[0]
	}
	writeJSON(w, http.StatusOK, response)
}
