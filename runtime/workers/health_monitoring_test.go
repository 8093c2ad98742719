package workers

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthMonitoringWorker_SamplesOwnProcess(t *testing.T) {
	req := require.New(t)
	worker := NewHealthMonitoringWorker(slog.Default(), int32(os.Getpid()), 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req.NoError(worker.Run(ctx))
}

func TestHealthMonitoringWorker_UnknownProcess(t *testing.T) {
	req := require.New(t)
	worker := NewHealthMonitoringWorker(slog.Default(), -1, 10*time.Millisecond)

	req.Error(worker.Run(context.Background()))
}
