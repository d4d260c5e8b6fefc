// Package observability collects the process's own technical metrics
// (memory, CPU, OS status) for the health endpoint.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthSnapshot is the health endpoint's payload.
type HealthSnapshot struct {
	Status        string  `json:"status"`
	PID           int     `json:"pid"`
	PIDStatus     string  `json:"pidStatus,omitempty"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	Goroutines    int     `json:"goroutines"`
	RSSBytes      uint64  `json:"rssBytes"`
	CPUPercent    float64 `json:"cpuPercent"`
	OnlineUsers   int     `json:"onlineUsers"`
}

// Monitor reads the server's own process metrics. Collection is best-effort:
// a probe failure is logged and leaves the field zero, never fails the
// health check.
type Monitor struct {
	log       *slog.Logger
	proc      *process.Process
	startedAt time.Time
}

func NewMonitor(log *slog.Logger) *Monitor {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Self process handle unavailable, health metrics degraded", "err", err)
		p = nil
	}
	return &Monitor{log: log, proc: p, startedAt: time.Now()}
}

// Snapshot collects the current self stats. onlineUsers is supplied by the
// caller since presence lives outside this package.
func (m *Monitor) Snapshot(onlineUsers int) HealthSnapshot {
	snap := HealthSnapshot{
		Status:        "ok",
		PID:           os.Getpid(),
		UptimeSeconds: time.Since(m.startedAt).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		OnlineUsers:   onlineUsers,
	}
	if m.proc == nil {
		return snap
	}

	if memInfo, err := m.proc.MemoryInfo(); err != nil {
		m.log.Debug("Failed to read self memory info", "err", err)
	} else {
		snap.RSSBytes = memInfo.RSS
	}
	if cpu, err := m.proc.CPUPercent(); err != nil {
		m.log.Debug("Failed to read self cpu usage", "err", err)
	} else {
		snap.CPUPercent = cpu
	}
	if status, err := m.proc.Status(); err != nil {
		m.log.Debug("Failed to read self process status", "err", err)
	} else {
		snap.PIDStatus = status
	}
	return snap
}
