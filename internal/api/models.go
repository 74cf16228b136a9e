package api

import "github.com/NikitaDmitryuk/telegram-media-downloader/internal/sysinfo"

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

type JobsResponse struct {
	Active int `json:"active"`
	Queued int `json:"queued"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Status         string            `json:"status"`
	Version        string            `json:"version,omitempty"`
	Uptime         string            `json:"uptime"`
	Jobs           JobsResponse      `json:"jobs"`
	HistoryEnabled bool              `json:"history_enabled"`
	Host           *sysinfo.Snapshot `json:"host,omitempty"`
	HostError      string            `json:"host_error,omitempty"`
}
