package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/R3E-Network/submission_review/internal/httputil"
)

type memoryStats struct {
	TotalBytes  uint64  `json:"totalBytes"`
	UsedBytes   uint64  `json:"usedBytes"`
	UsedPercent float64 `json:"usedPercent"`
}

type memoryProbe func(ctx context.Context) (*memoryStats, error)

func hostMemory(ctx context.Context) (*memoryStats, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return &memoryStats{TotalBytes: vm.Total, UsedBytes: vm.Used, UsedPercent: vm.UsedPercent}, nil
}

type healthResponse struct {
	Status   string       `json:"status"`
	Database string       `json:"database"`
	Memory   *memoryStats `json:"memory,omitempty"`
	Time     time.Time    `json:"time"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Time: time.Now().UTC()}
	status := http.StatusOK

	if h.pinger != nil {
		if err := h.pinger.Ping(ctx); err != nil {
			h.log.WithContext(ctx).WithError(err).Warn("health check: database unreachable")
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	if m, err := h.memory(ctx); err == nil {
		resp.Memory = m
	}
	httputil.WriteJSON(w, status, resp)
}
