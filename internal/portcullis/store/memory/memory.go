// Package memory holds map-backed stores for tests and the "memory" driver.
package memory

import "github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"

// New returns a full set of empty in-memory stores.
func New() store.Stores {
	g, v, sc, l := NewGateStore(), NewVehicleStore(), NewScheduleStore(), NewAccessLogStore()
	return store.Stores{
		Gates:      g,
		Vehicles:   v,
		Schedules:  sc,
		AccessLogs: l,
		Batch:      NewBatchWriter(g, v, sc, l),
	}
}
