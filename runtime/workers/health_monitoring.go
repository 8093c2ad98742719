package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker periodically logs CPU and memory usage of the server process.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	pid            int32
	metricInterval time.Duration
}

func NewHealthMonitoringWorker(log *slog.Logger, pid int32, metricInterval time.Duration) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{log: log, pid: pid, metricInterval: metricInterval}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			ram, err := p.MemoryPercent()
			if err != nil {
				w.log.Error("Error while finding process ram usage", "err", err)
				continue
			}
			threads, err := p.NumThreads()
			if err != nil {
				w.log.Error("Error while finding process threads", "err", err)
				continue
			}
			w.log.Info("Process health", "pid", w.pid, "cpu", cpu, "ram", ram, "threads", threads)
		}
	}
}
