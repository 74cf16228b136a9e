package sysinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/lang"
	"github.com/NikitaDmitryuk/telegram-media-downloader/internal/utils"
)

// Snapshot is a point-in-time view of the host the bot runs on.
type Snapshot struct {
	Hostname    string        `json:"hostname"`
	Platform    string        `json:"platform"`
	Uptime      time.Duration `json:"uptime"`
	MemTotal    uint64        `json:"mem_total"`
	MemUsed     uint64        `json:"mem_used"`
	MemPercent  float64       `json:"mem_percent"`
	DiskPath    string        `json:"disk_path"`
	DiskTotal   uint64        `json:"disk_total"`
	DiskFree    uint64        `json:"disk_free"`
	DiskPercent float64       `json:"disk_percent"`
}

// Collect gathers host, memory and disk usage for the filesystem holding path.
func Collect(ctx context.Context, path string) (*Snapshot, error) {
	hostInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("host info: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory info: %w", err)
	}
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("disk usage for %s: %w", path, err)
	}

	return &Snapshot{
		Hostname:    hostInfo.Hostname,
		Platform:    hostInfo.Platform,
		Uptime:      time.Duration(hostInfo.Uptime) * time.Second,
		MemTotal:    vm.Total,
		MemUsed:     vm.Used,
		MemPercent:  vm.UsedPercent,
		DiskPath:    path,
		DiskTotal:   usage.Total,
		DiskFree:    usage.Free,
		DiskPercent: usage.UsedPercent,
	}, nil
}

// FreeSpace returns the bytes available on the filesystem holding path.
func FreeSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// Format renders the /status reply.
func Format(s *Snapshot, active, queued int) string {
	return lang.Get(lang.Status,
		FormatUptime(s.Uptime),
		s.MemPercent,
		utils.HumanBytes(s.DiskFree),
		utils.HumanBytes(s.DiskTotal),
		active,
		queued,
	)
}

// FormatUptime renders d as "3d 4h 5m".
func FormatUptime(d time.Duration) string {
	d = d.Truncate(time.Minute)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
