package memory

import (
	"context"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
)

// BatchWriter holds every store's lock while it writes, so readers see a
// batch in full or not at all.
type BatchWriter struct {
	gates     *GateStore
	vehicles  *VehicleStore
	schedules *ScheduleStore
	logs      *AccessLogStore
}

func NewBatchWriter(g *GateStore, v *VehicleStore, sc *ScheduleStore, l *AccessLogStore) *BatchWriter {
	return &BatchWriter{gates: g, vehicles: v, schedules: sc, logs: l}
}

func (w *BatchWriter) WriteBatch(ctx context.Context, b store.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Lock order: gates, vehicles, schedules, logs.
	w.gates.mu.Lock()
	defer w.gates.mu.Unlock()
	w.vehicles.mu.Lock()
	defer w.vehicles.mu.Unlock()
	w.schedules.mu.Lock()
	defer w.schedules.mu.Unlock()
	w.logs.mu.Lock()
	defer w.logs.mu.Unlock()

	for _, g := range b.Gates {
		w.gates.put(g)
	}
	for _, v := range b.Vehicles {
		w.vehicles.put(v)
	}
	for _, sc := range b.Schedules {
		w.schedules.put(sc)
	}
	w.logs.events = append(w.logs.events, b.AccessLogs...)
	return nil
}
