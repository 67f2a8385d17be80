package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats is one sample of the server's footprint.
type Stats struct {
	Participants int
	RSSBytes     uint64
	CPUPercent   float64
	Status       string
}

// StatsReporter logs the room size and the process footprint at a fixed interval.
type StatsReporter struct {
	log      *slog.Logger
	room     observability.RoomStats
	interval time.Duration
	process  *process.Process
}

func NewStatsReporter(log *slog.Logger, room observability.RoomStats, interval time.Duration) (*StatsReporter, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &StatsReporter{log: log, room: room, interval: interval, process: p}, nil
}

// Run returns nil on cancellation so the supervisor never restarts it for that.
func (w *StatsReporter) Run(ctx context.Context) error {
	w.log.Info("Starting stats reporter", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats, err := w.Snapshot()
			if err != nil {
				w.log.Error("Failed to collect self stats", "error", err)
				continue
			}
			w.log.Info("Server stats",
				"participants", stats.Participants,
				"rss_bytes", stats.RSSBytes,
				"cpu_percent", stats.CPUPercent,
				"status", stats.Status)
		}
	}
}

// Snapshot samples the room and the current process.
func (w *StatsReporter) Snapshot() (Stats, error) {
	memInfo, err := w.process.MemoryInfo()
	if err != nil {
		return Stats{}, err
	}
	cpuPercent, err := w.process.CPUPercent()
	if err != nil {
		return Stats{}, err
	}
	status, err := w.process.Status()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Participants: w.room.Size(),
		RSSBytes:     memInfo.RSS,
		CPUPercent:   cpuPercent,
		Status:       status,
	}, nil
}
