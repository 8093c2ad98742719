// Package runtime holds the real-time core: presence, message delivery and room relay.
// It orchestrates connections and the store without knowing about the transport.
package runtime

import (
	"context"
	"devmatch/contract"
	"devmatch/repositories"
	"devmatch/runtime/workers"
	"log/slog"
	"os"
	"time"
)

type Options struct {
	NumPersistWorkers int
	BufferSize        int
	MaxBodyLength     int
	PersistTimeout    time.Duration
	// MetricInterval enables queue and process monitoring when positive.
	MetricInterval time.Duration
}

type Orchestrator struct {
	log               *slog.Logger
	numPersistWorkers int
	metricInterval    time.Duration
	supervisor        contract.ISupervisor
	dispatcher        *Dispatcher
	broker            *Broker
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	messageRepository repositories.IMessageRepository, opts Options) *Orchestrator {
	registry := NewRegistry()
	broker := NewBroker(log, registry, messageRepository, opts.MaxBodyLength, opts.PersistTimeout)
	return &Orchestrator{
		log:               log,
		numPersistWorkers: max(opts.NumPersistWorkers, 1),
		metricInterval:    opts.MetricInterval,
		supervisor:        supervisor,
		dispatcher:        NewDispatcher(log, registry, NewRooms(), broker, opts.BufferSize),
		broker:            broker,
	}
}

// Dispatcher is the entry point of the transport layer.
func (o *Orchestrator) Dispatcher() contract.IDispatcher {
	return o.dispatcher
}

// Start registers the dispatcher loop and the persistence workers to the supervisor,
// then blocks until the context is canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.supervisor.Add(o.dispatcher)
	for _, w := range o.preparePersistWorkers() {
		o.supervisor.Add(w)
	}
	if o.metricInterval > 0 {
		o.supervisor.Add(
			workers.NewChannelCapacityWorker(o.log, o.dispatcher.Channels(), o.metricInterval),
			workers.NewHealthMonitoringWorker(o.log, int32(os.Getpid()), o.metricInterval),
		)
	}

	o.log.Info("Starting orchestrator and all supervised workers", "persist_workers", o.numPersistWorkers)
	o.supervisor.Run(ctx)
	return nil
}

func (o *Orchestrator) preparePersistWorkers() []contract.Worker {
	var res []contract.Worker
	for i := 0; i < o.numPersistWorkers; i++ {
		res = append(res, workers.NewPersistUnitWorker(o.dispatcher.Jobs(), o.dispatcher.Results(), o.broker.Persist, o.log))
	}
	return res
}

// Stop initiates a graceful shutdown of the orchestrator.
// Pending sends still in the queue are dropped, the clients never got an ack for them.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
