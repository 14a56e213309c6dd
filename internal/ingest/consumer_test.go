package ingest_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/ingest"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/memory"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

func TestProcess_RecordsValidMessage(t *testing.T) {
	ls := memory.NewAccessLogStore()
	svc := service.NewAccessLogService(ls, service.NewValidator(), nil, zap.NewNop())

	body := []byte(`{"vehicleId":"v1","gateId":"g1","timestamp":"2026-03-01T08:00:00Z","access":"denied","reason":"No active schedule"}`)
	if err := ingest.Process(context.Background(), svc, body); err != nil {
		t.Fatalf("Process: %v", err)
	}

	ev := ls.Events()
	if len(ev) != 1 {
		t.Fatalf("expected 1 record, got %d", len(ev))
	}
	if ev[0].Access != types.AccessDenied || ev[0].Timestamp.Hour() != 8 {
		t.Errorf("unexpected record: %+v", ev[0])
	}
}

func TestProcess_RejectsGarbage(t *testing.T) {
	svc := service.NewAccessLogService(memory.NewAccessLogStore(), service.NewValidator(), nil, zap.NewNop())

	if err := ingest.Process(context.Background(), svc, []byte("not json")); !errors.Is(err, ingest.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
	err := ingest.Process(context.Background(), svc, []byte(`{"vehicleId":"v1","gateId":"g1","access":"perhaps"}`))
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, types.RecordAccessLogRequest, string) (types.AccessLog, error) {
	return types.AccessLog{}, errors.New("disk full")
}

func TestProcess_PropagatesStoreErrors(t *testing.T) {
	err := ingest.Process(context.Background(), failingRecorder{}, []byte(`{"vehicleId":"v1","gateId":"g1","access":"granted"}`))
	if err == nil || errors.Is(err, ingest.ErrMalformed) {
		t.Errorf("expected transient error, got %v", err)
	}
}
