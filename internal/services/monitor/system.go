package monitor

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats is the host snapshot reported by the health endpoint
// and the websocket status stream.
type SystemStats struct {
	CPU    CPUStats    `json:"cpu"`
	Memory MemoryStats `json:"memory"`
	Disk   DiskStats   `json:"disk"`
	Host   HostInfo    `json:"host"`
}

type CPUStats struct {
	UsagePercent float64 `json:"usage_percent"`
	Cores        int     `json:"cores"`
}

type MemoryStats struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
}

type DiskStats struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
}

type HostInfo struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Uptime   uint64 `json:"uptime"`
}

// GetSystemStats samples the host. Individual probe failures leave
// their section zeroed rather than failing the whole snapshot.
func GetSystemStats() *SystemStats {
	stats := &SystemStats{}

	if pct, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(pct) > 0 {
		stats.CPU.UsagePercent = pct[0]
	}
	if counts, err := cpu.Counts(true); err == nil {
		stats.CPU.Cores = counts
	}

	if v, err := mem.VirtualMemory(); err == nil {
		stats.Memory = MemoryStats{Total: v.Total, Used: v.Used, UsedPercent: v.UsedPercent}
	}

	if d, err := disk.Usage("/"); err == nil {
		stats.Disk = DiskStats{Path: d.Path, Total: d.Total, Used: d.Used, UsedPercent: d.UsedPercent}
	}

	if info, err := host.Info(); err == nil {
		stats.Host = HostInfo{Hostname: info.Hostname, OS: info.OS, Uptime: info.Uptime}
	}

	return stats
}
