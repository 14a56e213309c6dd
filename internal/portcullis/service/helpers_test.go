package service_test

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/memory"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

var alice = types.Identity{UserID: "alice", Email: "alice@port.test", Name: "Alice"}
var bob = types.Identity{UserID: "bob"}

// fixture bundles in-memory stores and the services built on them.
type fixture struct {
	stores    store.Stores
	logStore  *memory.AccessLogStore
	validate  *service.Validator
	gates     *service.GateService
	vehicles  *service.VehicleService
	schedules *service.ScheduleService
	logs      *service.AccessLogService
	directory *service.Directory
}

func newFixture() *fixture {
	gates, vehicles, schedules := memory.NewGateStore(), memory.NewVehicleStore(), memory.NewScheduleStore()
	logStore := memory.NewAccessLogStore()
	st := store.Stores{
		Gates:      gates,
		Vehicles:   vehicles,
		Schedules:  schedules,
		AccessLogs: logStore,
		Batch:      memory.NewBatchWriter(gates, vehicles, schedules, logStore),
	}
	v := service.NewValidator()
	return &fixture{
		stores:    st,
		logStore:  logStore,
		validate:  v,
		gates:     service.NewGateService(st.Gates, v),
		vehicles:  service.NewVehicleService(st.Vehicles, v),
		schedules: service.NewScheduleService(st.Schedules, v),
		logs:      service.NewAccessLogService(st.AccessLogs, v, nil, zap.NewNop()),
		directory: service.NewDirectory(st.Gates, st.Vehicles),
	}
}

func (f *fixture) mustGate(location string) types.Gate {
	g, err := f.gates.Create(context.Background(), types.CreateGateRequest{Location: location})
	if err != nil {
		panic(err)
	}
	return g
}

func (f *fixture) mustVehicle(owner types.Identity, plate string) types.Vehicle {
	v, err := f.vehicles.Create(context.Background(), owner, types.CreateVehicleRequest{
		LicensePlate: plate,
		Type:         "Container Truck",
		Owner:        "Global Logistics",
		OwnerEmail:   "ops@globallogistics.test",
	})
	if err != nil {
		panic(err)
	}
	return v
}

// recorder is an AccessLogObserver that keeps what it is told.
type recorder struct {
	mu   sync.Mutex
	seen []types.AccessLog
}

func (r *recorder) AccessLogRecorded(l types.AccessLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, l)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
