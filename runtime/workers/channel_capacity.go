package workers

import (
	"context"
	"log/slog"
	"reflect"
	"time"
)

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically reports the current capacity and length of the
// dispatcher queues, so backpressure is visible before sends get rejected.
// Reading len(channel) and cap(channel) is non-blocking, so this won't interfere
// with other goroutines.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	channels       []NamedChannel
	metricInterval time.Duration
	warnRatio      float64
}

func NewChannelCapacityWorker(log *slog.Logger, channels []NamedChannel, metricInterval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:            log,
		channels:       channels,
		metricInterval: metricInterval,
		warnRatio:      0.8,
	}
}

func (w ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel capacity report")
			return nil
		case <-ticker.C:
			for _, nc := range w.channels {
				capacity, length, ok := Usage(nc.Channel)
				if !ok {
					w.log.Error("Provided object is not a channel", "name", nc.Name)
					continue
				}
				if capacity > 0 && float64(length) >= w.warnRatio*float64(capacity) {
					w.log.Warn("Channel almost full", "name", nc.Name, "capacity", capacity, "length", length)
					continue
				}
				w.log.Debug("Channel capacity", "name", nc.Name, "capacity", capacity, "length", length)
			}
		}
	}
}

// Usage returns cap and len of any channel.
func Usage(channel any) (int, int, bool) {
	v := reflect.ValueOf(channel)
	if v.Kind() != reflect.Chan {
		return 0, 0, false
	}
	return v.Cap(), v.Len(), true
}
