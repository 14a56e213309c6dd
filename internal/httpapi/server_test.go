package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/Portcullis/server/internal/httpapi"
	"github.com/BrandonDHaskell/Portcullis/server/internal/metrics"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/store/memory"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/summary"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

type stubModel struct {
	reply string
	err   error
}

func (m *stubModel) Generate(context.Context, string) (string, error) {
	return m.reply, m.err
}

type options struct {
	policy    service.AccessPolicy
	model     summary.Model
	dev       bool
	jwtSecret string
	burst     int
	ready     func(context.Context) error
}

type testEnv struct {
	ts     *httptest.Server
	stores store.Stores
}

// newTestServer wires up the full dependency graph using in-memory stores
// and returns an httptest.Server whose URL can be hit with a plain http.Client.
func newTestServer(t *testing.T, o options) *testEnv {
	t.Helper()

	if o.model == nil {
		o.model = &stubModel{reply: `{"summary":"all quiet"}`}
	}
	if o.burst == 0 {
		o.burst = 100
	}

	logger := zap.NewNop()
	m := metrics.New()
	st := memory.New()
	v := service.NewValidator()

	logs := service.NewAccessLogService(st.AccessLogs, v, m, logger)
	dir := service.NewDirectory(st.Gates, st.Vehicles)
	flow, err := summary.NewFlow(summary.Config{}, o.model)
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:           logger,
		Metrics:          m,
		Addr:             ":0",
		Dev:              o.dev,
		Auth:             httpapi.AuthConfig{JWTSecret: o.jwtSecret, DevUserID: "dev-user"},
		AllowedOrigins:   []string{"https://ops.example.com"},
		RateLimit:        httpapi.RateLimitConfig{RatePerSecond: 0.001, Burst: o.burst},
		Ready:            o.ready,
		GateService:      service.NewGateService(st.Gates, v),
		VehicleService:   service.NewVehicleService(st.Vehicles, v),
		ScheduleService:  service.NewScheduleService(st.Schedules, v),
		AccessLogService: logs,
		AccessService:    service.NewAccessService(dir, st.Schedules, logs, o.policy, m, logger),
		SummaryService:   service.NewSummaryService(flow, dir, st.AccessLogs, m, logger),
		DashboardService: service.NewDashboardService(st),
		Seeder:           service.NewSeeder(st, logs, logger),
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, stores: st}
}

func (e *testEnv) do(t *testing.T, method, path, user string, body any) *http.Response {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func (e *testEnv) mustGate(t *testing.T, location string) types.Gate {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/v1/gates", "alice", types.CreateGateRequest{Location: location})
	expectStatus(t, resp, http.StatusCreated)
	return decode[types.Gate](t, resp)
}

func (e *testEnv) mustVehicle(t *testing.T, user, plate string) types.Vehicle {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/v1/vehicles", user, types.CreateVehicleRequest{
		LicensePlate: plate,
		Type:         "Truck",
		Owner:        "Harbor Freight Co",
		OwnerEmail:   "ops@harbor.test",
	})
	expectStatus(t, resp, http.StatusCreated)
	return decode[types.Vehicle](t, resp)
}

// ── Health ───────────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	e := newTestServer(t, options{})
	resp := e.do(t, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, resp, http.StatusOK)

	body := decode[map[string]string](t, resp)
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
}

func TestReadyz_ReportsStoreFailure(t *testing.T) {
	e := newTestServer(t, options{ready: func(context.Context) error { return errors.New("db down") }})
	resp := e.do(t, http.MethodGet, "/readyz", "", nil)
	expectStatus(t, resp, http.StatusServiceUnavailable)
}

func TestMetrics_ExposesRequestCounter(t *testing.T) {
	e := newTestServer(t, options{})
	e.do(t, http.MethodGet, "/healthz", "", nil)

	resp := e.do(t, http.MethodGet, "/metrics", "", nil)
	expectStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "portcullis_http_requests_total") {
		t.Error("expected portcullis_http_requests_total in /metrics output")
	}
}

// ── Access requests ──────────────────────────────────────────────────────────

func TestAccessRequest_AllowAll_Granted(t *testing.T) {
	e := newTestServer(t, options{policy: service.AccessPolicy{AllowAll: true}})
	g := e.mustGate(t, "North Gate")
	v := e.mustVehicle(t, "alice", "ABC-123")

	resp := e.do(t, http.MethodPost, "/v1/access_request", "", types.AccessRequest{
		GateID:       g.ID,
		LicensePlate: "abc-123",
	})
	expectStatus(t, resp, http.StatusOK)

	ar := decode[types.AccessResponse](t, resp)
	if !ar.OK || !ar.Known || !ar.Granted {
		t.Errorf("expected ok/known/granted, got %+v", ar)
	}
	if ar.VehicleID != v.ID {
		t.Errorf("expected vehicle_id=%s, got %q", v.ID, ar.VehicleID)
	}

	logs, err := e.stores.AccessLogs.ListAccessLogs(context.Background(), types.AccessLogQuery{})
	if err != nil {
		t.Fatalf("ListAccessLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Access != types.AccessGranted {
		t.Errorf("expected one granted log, got %+v", logs)
	}
}

func TestAccessRequest_UnknownGate_Forbidden(t *testing.T) {
	e := newTestServer(t, options{policy: service.AccessPolicy{AllowAll: true}})

	resp := e.do(t, http.MethodPost, "/v1/access_request", "", types.AccessRequest{
		GateID:    "rogue-gate",
		VehicleID: "veh-1",
	})
	expectStatus(t, resp, http.StatusForbidden)

	ar := decode[types.AccessResponse](t, resp)
	if ar.Granted {
		t.Error("expected granted=false for unknown gate")
	}
	if ar.Reason != service.ReasonUnknownGate {
		t.Errorf("expected reason=%q, got %q", service.ReasonUnknownGate, ar.Reason)
	}
}

func TestAccessRequest_Validation(t *testing.T) {
	e := newTestServer(t, options{})

	resp := e.do(t, http.MethodPost, "/v1/access_request", "", types.AccessRequest{VehicleID: "veh-1"})
	expectStatus(t, resp, http.StatusBadRequest)
	if body := decode[map[string]string](t, resp); body["error"] != "invalid_gate_id" {
		t.Errorf("expected error=invalid_gate_id, got %q", body["error"])
	}

	resp = e.do(t, http.MethodPost, "/v1/access_request", "", `{not json`)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestAccessRequest_Protobuf(t *testing.T) {
	e := newTestServer(t, options{policy: service.AccessPolicy{AllowAll: true}})
	g := e.mustGate(t, "East Cargo Bay")
	e.mustVehicle(t, "alice", "XYZ-789")

	var body []byte
	body = protowire.AppendTag(body, 1, protowire.BytesType)
	body = protowire.AppendString(body, g.ID)
	body = protowire.AppendTag(body, 3, protowire.BytesType)
	body = protowire.AppendString(body, "XYZ-789")
	// unknown field is skipped
	body = protowire.AppendTag(body, 9, protowire.VarintType)
	body = protowire.AppendVarint(body, 7)

	resp, err := http.Post(e.ts.URL+"/v1/access_request", "application/x-protobuf", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-protobuf" {
		t.Errorf("expected protobuf response, got %q", ct)
	}

	data, _ := io.ReadAll(resp.Body)
	fields := map[protowire.Number]any{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			t.Fatal("bad tag in response")
		}
		data = data[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			fields[num] = protowire.DecodeBool(v)
			data = data[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			fields[num] = string(v)
			data = data[n:]
		default:
			t.Fatalf("unexpected wire type %v", typ)
		}
	}

	if fields[1] != true || fields[2] != true || fields[3] != true {
		t.Errorf("expected ok/known/granted set, got %v", fields)
	}
	if fields[5] != g.ID {
		t.Errorf("expected gate_id=%s, got %v", g.ID, fields[5])
	}
}

func TestAccessRequest_MalformedProtobuf(t *testing.T) {
	e := newTestServer(t, options{})
	resp, err := http.Post(e.ts.URL+"/v1/access_request", "application/x-protobuf", bytes.NewReader([]byte{0x0a, 0x05, 'a'}))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusBadRequest)
}

// ── Records ──────────────────────────────────────────────────────────────────

func TestGates_CreateGetUpdateToggle(t *testing.T) {
	e := newTestServer(t, options{})
	g := e.mustGate(t, "West Terminal")
	if g.Status != types.GateClosed {
		t.Errorf("expected new gate closed, got %q", g.Status)
	}

	resp := e.do(t, http.MethodPatch, "/v1/gates/"+g.ID, "alice", map[string]string{"location": "West Terminal 2"})
	expectStatus(t, resp, http.StatusOK)
	if got := decode[types.Gate](t, resp); got.Location != "West Terminal 2" {
		t.Errorf("expected renamed gate, got %q", got.Location)
	}

	resp = e.do(t, http.MethodPost, "/v1/gates/"+g.ID+"/toggle", "alice", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[types.Gate](t, resp); got.Status != types.GateOpen {
		t.Errorf("expected toggled gate open, got %q", got.Status)
	}

	resp = e.do(t, http.MethodGet, "/v1/gates", "alice", nil)
	expectStatus(t, resp, http.StatusOK)
	if list := decode[[]types.Gate](t, resp); len(list) != 1 {
		t.Errorf("expected 1 gate, got %d", len(list))
	}

	resp = e.do(t, http.MethodGet, "/v1/gates/missing", "alice", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestGates_CreateRejectsEmptyLocation(t *testing.T) {
	e := newTestServer(t, options{})
	resp := e.do(t, http.MethodPost, "/v1/gates", "alice", types.CreateGateRequest{})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = e.do(t, http.MethodPost, "/v1/gates", "alice", `{"location":"x","extra":1}`)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestVehicles_ScopedToCaller(t *testing.T) {
	e := newTestServer(t, options{})
	v := e.mustVehicle(t, "alice", "PORT-1")

	resp := e.do(t, http.MethodGet, "/v1/vehicles/"+v.ID, "bob", nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = e.do(t, http.MethodGet, "/v1/vehicles", "bob", nil)
	expectStatus(t, resp, http.StatusOK)
	if list := decode[[]types.Vehicle](t, resp); len(list) != 0 {
		t.Errorf("expected bob to see no vehicles, got %d", len(list))
	}

	resp = e.do(t, http.MethodGet, "/v1/vehicles", "alice", nil)
	expectStatus(t, resp, http.StatusOK)
	if list := decode[[]types.Vehicle](t, resp); len(list) != 1 {
		t.Errorf("expected alice to see 1 vehicle, got %d", len(list))
	}
}

func TestSchedules_CreateAndList(t *testing.T) {
	e := newTestServer(t, options{})
	when := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)

	resp := e.do(t, http.MethodPost, "/v1/schedules", "alice", types.CreateScheduleRequest{
		VehicleID:     "veh-1",
		GateID:        "gate-1",
		ScheduledTime: when,
		Purpose:       "Container pickup",
	})
	expectStatus(t, resp, http.StatusCreated)
	sc := decode[types.Schedule](t, resp)

	resp = e.do(t, http.MethodPatch, "/v1/schedules/"+sc.ID, "alice", map[string]string{"purpose": "Fuel delivery"})
	expectStatus(t, resp, http.StatusOK)
	if got := decode[types.Schedule](t, resp); got.Purpose != "Fuel delivery" {
		t.Errorf("expected updated purpose, got %q", got.Purpose)
	}

	resp = e.do(t, http.MethodGet, "/v1/schedules", "alice", nil)
	expectStatus(t, resp, http.StatusOK)
	if list := decode[[]types.Schedule](t, resp); len(list) != 1 || !list[0].ScheduledTime.Equal(when) {
		t.Errorf("unexpected schedules: %+v", list)
	}
}

// ── Access logs ──────────────────────────────────────────────────────────────

func TestAccessLogs_RecordAndFilter(t *testing.T) {
	e := newTestServer(t, options{})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, access := range []types.AccessDecision{types.AccessGranted, types.AccessDenied, types.AccessGranted} {
		ts := base.Add(time.Duration(i) * time.Hour)
		resp := e.do(t, http.MethodPost, "/v1/access_logs", "alice", types.RecordAccessLogRequest{
			VehicleID: "veh-1",
			GateID:    "gate-1",
			Timestamp: &ts,
			Access:    access,
		})
		expectStatus(t, resp, http.StatusCreated)
	}

	from := base.Add(30 * time.Minute).Format(time.RFC3339)
	resp := e.do(t, http.MethodGet, "/v1/access_logs?from="+from, "alice", nil)
	expectStatus(t, resp, http.StatusOK)
	logs := decode[[]types.AccessLog](t, resp)
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs after %s, got %d", from, len(logs))
	}
	if !logs[0].Timestamp.After(logs[1].Timestamp) {
		t.Error("expected newest first")
	}

	resp = e.do(t, http.MethodGet, "/v1/access_logs/trends", "alice", nil)
	expectStatus(t, resp, http.StatusOK)
	trends := decode[[]types.DailyTrend](t, resp)
	if len(trends) != 1 || trends[0].Granted != 2 || trends[0].Denied != 1 {
		t.Errorf("unexpected trends: %+v", trends)
	}
}

func TestAccessLogs_BadQuery(t *testing.T) {
	e := newTestServer(t, options{})

	for _, q := range []string{"?from=yesterday", "?limit=ten", "?limit=-1",
		"?from=2026-03-02T00:00:00Z&to=2026-03-01T00:00:00Z"} {
		resp := e.do(t, http.MethodGet, "/v1/access_logs"+q, "alice", nil)
		expectStatus(t, resp, http.StatusBadRequest)
	}

	resp := e.do(t, http.MethodPost, "/v1/access_logs", "alice", types.RecordAccessLogRequest{
		VehicleID: "veh-1",
		GateID:    "gate-1",
		Access:    "maybe",
	})
	expectStatus(t, resp, http.StatusBadRequest)
}

// ── Summaries ────────────────────────────────────────────────────────────────

func TestSummaries_OK(t *testing.T) {
	e := newTestServer(t, options{})

	resp := e.do(t, http.MethodPost, "/v1/summaries", "alice", nil)
	expectStatus(t, resp, http.StatusOK)
	if report := decode[types.SummaryReport](t, resp); report.Summary != "all quiet" {
		t.Errorf("expected summary from model, got %q", report.Summary)
	}

	resp = e.do(t, http.MethodPost, "/v1/summaries/flow", "alice", summary.Input{
		StartTime: "2026-03-01T00:00:00.000Z",
		EndTime:   "2026-03-08T00:00:00.000Z",
		Logs:      "[]",
	})
	expectStatus(t, resp, http.StatusOK)
	if out := decode[summary.Output](t, resp); out.Summary != "all quiet" {
		t.Errorf("expected flow summary, got %q", out.Summary)
	}
}

func TestSummaries_ModelFailureIs502(t *testing.T) {
	e := newTestServer(t, options{model: &stubModel{err: errors.New("upstream 503")}})

	resp := e.do(t, http.MethodPost, "/v1/summaries", "alice", nil)
	expectStatus(t, resp, http.StatusBadGateway)
	body := decode[map[string]string](t, resp)
	if body["message"] != "Failed to generate summary. Please try again later." {
		t.Errorf("unexpected message %q", body["message"])
	}
}

func TestSummaries_InvertedRange(t *testing.T) {
	e := newTestServer(t, options{})
	resp := e.do(t, http.MethodPost, "/v1/summaries", "alice", map[string]string{
		"startTime": "2026-03-08T00:00:00Z",
		"endTime":   "2026-03-01T00:00:00Z",
	})
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestSummaries_RateLimited(t *testing.T) {
	e := newTestServer(t, options{burst: 1})

	resp := e.do(t, http.MethodPost, "/v1/summaries", "alice", nil)
	expectStatus(t, resp, http.StatusOK)

	resp = e.do(t, http.MethodPost, "/v1/summaries", "alice", nil)
	expectStatus(t, resp, http.StatusTooManyRequests)

	// limits are per caller
	resp = e.do(t, http.MethodPost, "/v1/summaries", "bob", nil)
	expectStatus(t, resp, http.StatusOK)
}

// ── Dashboard and seeding ────────────────────────────────────────────────────

func TestSeed_DevOnly(t *testing.T) {
	e := newTestServer(t, options{})
	resp := e.do(t, http.MethodPost, "/v1/seed", "alice", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestSeed_ThenDashboard(t *testing.T) {
	e := newTestServer(t, options{dev: true})

	resp := e.do(t, http.MethodPost, "/v1/seed", "alice", nil)
	expectStatus(t, resp, http.StatusOK)
	res := decode[types.SeedResult](t, resp)
	if res.GatesCreated == 0 || res.LogsCreated != service.SeedLogCount {
		t.Errorf("unexpected seed result: %+v", res)
	}

	resp = e.do(t, http.MethodGet, "/v1/dashboard", "alice", nil)
	expectStatus(t, resp, http.StatusOK)
	d := decode[types.Dashboard](t, resp)
	if d.Overview.TotalGates != res.GatesCreated {
		t.Errorf("expected %d gates, got %d", res.GatesCreated, d.Overview.TotalGates)
	}
	if d.Overview.AccessEvents != service.SeedLogCount {
		t.Errorf("expected %d events, got %d", service.SeedLogCount, d.Overview.AccessEvents)
	}
}

// ── Identity and CORS ────────────────────────────────────────────────────────

func TestIdentity_JWTRequired(t *testing.T) {
	const secret = "test-secret"
	e := newTestServer(t, options{jwtSecret: secret})

	resp := e.do(t, http.MethodGet, "/v1/gates", "alice", nil)
	expectStatus(t, resp, http.StatusUnauthorized)

	sign := func(method jwt.SigningMethod, key any) string {
		tok := jwt.NewWithClaims(method, jwt.MapClaims{
			"sub":   "alice",
			"email": "alice@port.test",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})
		s, err := tok.SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	get := func(token string) *http.Response {
		req, _ := http.NewRequest(http.MethodGet, e.ts.URL+"/v1/gates", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	expectStatus(t, get(sign(jwt.SigningMethodHS256, []byte(secret))), http.StatusOK)
	expectStatus(t, get(sign(jwt.SigningMethodHS256, []byte("wrong"))), http.StatusUnauthorized)
	expectStatus(t, get("not-a-token"), http.StatusUnauthorized)
}

func TestCORS_Preflight(t *testing.T) {
	e := newTestServer(t, options{})

	preflight := func(origin string) *http.Response {
		req, _ := http.NewRequest(http.MethodOptions, e.ts.URL+"/v1/gates", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("options: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := preflight("https://ops.example.com")
	expectStatus(t, resp, http.StatusNoContent)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://ops.example.com" {
		t.Errorf("expected origin reflected, got %q", got)
	}

	resp = preflight("https://evil.example.com")
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header for foreign origin, got %q", got)
	}
}
