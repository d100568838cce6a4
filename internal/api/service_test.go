package api

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/uav-deconfliction/core"
	"github.com/signalsfoundry/uav-deconfliction/internal/logging"
	"github.com/signalsfoundry/uav-deconfliction/internal/observability"
	"github.com/signalsfoundry/uav-deconfliction/model"
)

type apiTestEnv struct {
	ctx       context.Context
	svc       *core.DeconflictionService
	collector *observability.Collector
	client    *Client
}

func newAPITestEnv(t *testing.T) *apiTestEnv {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	collector, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	svc := core.NewDeconflictionService(nil, core.WithMetrics(collector))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			RequestIDUnaryServerInterceptor(logging.Noop()),
			TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	)
	RegisterDeconflictionServer(server, NewService(svc, logging.Noop()))

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(lis) }()
	t.Cleanup(func() {
		server.Stop()
		<-serveErr
	})

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &apiTestEnv{ctx: ctx, svc: svc, collector: collector, client: NewClient(conn)}
}

func straight(id string, y, z float64) *model.Mission {
	return model.MustMission(id, []model.Waypoint{
		model.NewWaypoint(0, y, z),
		model.NewWaypoint(100, y, z),
	}, 0, 20)
}

func TestRegisterListGetRoundTrip(t *testing.T) {
	env := newAPITestEnv(t)

	if err := env.client.RegisterMission(env.ctx, straight("d1", 0, 50)); err != nil {
		t.Fatalf("RegisterMission d1: %v", err)
	}
	if err := env.client.RegisterMission(env.ctx, straight("d2", 200, 50)); err != nil {
		t.Fatalf("RegisterMission d2: %v", err)
	}

	list, err := env.client.ListMissions(env.ctx)
	if err != nil {
		t.Fatalf("ListMissions: %v", err)
	}
	if len(list) != 2 || list[0].DroneID() != "d1" || list[1].DroneID() != "d2" {
		t.Fatalf("ListMissions = %v", list)
	}

	got, err := env.client.GetMission(env.ctx, "d2")
	if err != nil {
		t.Fatalf("GetMission: %v", err)
	}
	if got.NumWaypoints() != 2 || got.Waypoint(1) != model.NewWaypoint(100, 200, 50) || got.EndTime() != 20 {
		t.Fatalf("GetMission = %v", got)
	}

	if err := env.client.ClearMissions(env.ctx); err != nil {
		t.Fatalf("ClearMissions: %v", err)
	}
	if n := env.svc.Registry().Len(); n != 0 {
		t.Fatalf("registry size after clear = %d", n)
	}
}

func TestGetMissionErrors(t *testing.T) {
	env := newAPITestEnv(t)

	if _, err := env.client.GetMission(env.ctx, "ghost"); status.Code(err) != codes.NotFound {
		t.Fatalf("GetMission(ghost) code = %v, want NotFound", status.Code(err))
	}
	if _, err := env.client.GetMission(env.ctx, ""); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("GetMission(\"\") code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestRegisterMissionRejectsInvalidPayload(t *testing.T) {
	env := newAPITestEnv(t)
	raw := env.client.cc

	req, err := structpb.NewStruct(map[string]any{
		"drone_id":   "bad",
		"waypoints":  []any{map[string]any{"x": 0, "y": 0, "z": 0}},
		"start_time": 0,
		"end_time":   10,
	})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	err = raw.Invoke(env.ctx, methodRegisterMission, req, new(emptypb.Empty))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("RegisterMission code = %v, want InvalidArgument (%v)", status.Code(err), err)
	}

	bad, _ := structpb.NewStruct(map[string]any{"waypoints": "not-a-list"})
	err = raw.Invoke(env.ctx, methodRegisterMission, bad, new(emptypb.Empty))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("RegisterMission(bad shape) code = %v, want InvalidArgument", status.Code(err))
	}

	if env.svc.Registry().Len() != 0 {
		t.Fatalf("invalid missions must not be registered")
	}
}

func TestCheckMissionOverGRPC(t *testing.T) {
	env := newAPITestEnv(t)

	crossing := model.MustMission("drone_2", []model.Waypoint{
		model.NewWaypoint(50, -50, 50),
		model.NewWaypoint(50, 150, 50),
	}, 0, 20)
	if err := env.client.RegisterMission(env.ctx, crossing); err != nil {
		t.Fatalf("RegisterMission: %v", err)
	}

	primary := model.MustMission("primary", []model.Waypoint{
		model.NewWaypoint(0, 50, 50),
		model.NewWaypoint(100, 50, 50),
	}, 0, 20)
	res, err := env.client.CheckMission(env.ctx, primary)
	if err != nil {
		t.Fatalf("CheckMission: %v", err)
	}
	if res.Safe || len(res.Conflicts) == 0 {
		t.Fatalf("expected conflicts, got %+v", res)
	}
	if res.DroneID != "primary" || res.PairsChecked != 1 {
		t.Fatalf("unexpected result header %+v", res)
	}
	if res.SafetyBuffer != core.DefaultSafetyBuffer || res.Registered != 1 {
		t.Fatalf("server settings = buffer %v registered %d", res.SafetyBuffer, res.Registered)
	}
	hasCritical := false
	for _, c := range res.Conflicts {
		if c.ConflictingDrone != "drone_2" {
			t.Fatalf("conflict against %q", c.ConflictingDrone)
		}
		if c.Severity == core.SeverityCritical {
			hasCritical = true
		}
	}
	if !hasCritical {
		t.Fatalf("expected a critical conflict at the crossing: %+v", res.Conflicts)
	}

	if _, ok := env.svc.Registry().Get("primary"); ok {
		t.Fatalf("CheckMission must not register the primary")
	}
	if got := testutil.ToFloat64(env.collector.ChecksTotal.WithLabelValues("conflict")); got != 1 {
		t.Fatalf("checks_total{conflict} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(env.collector.RPCRequests.WithLabelValues("DeconflictionService", "CheckMission", "OK")); got != 1 {
		t.Fatalf("rpc_requests_total{CheckMission,OK} = %v, want 1", got)
	}
}

func TestCheckMissionSafeHasEmptyConflictList(t *testing.T) {
	env := newAPITestEnv(t)
	if err := env.client.RegisterMission(env.ctx, straight("far", 500, 50)); err != nil {
		t.Fatalf("RegisterMission: %v", err)
	}

	res, err := env.client.CheckMission(env.ctx, straight("primary", 0, 50))
	if err != nil {
		t.Fatalf("CheckMission: %v", err)
	}
	if !res.Safe || res.Conflicts == nil || len(res.Conflicts) != 0 {
		t.Fatalf("expected safe with empty conflicts, got %+v", res)
	}
}

func TestCheckFleetOverGRPC(t *testing.T) {
	env := newAPITestEnv(t)
	for _, m := range []*model.Mission{straight("a", 0, 50), straight("b", 10, 50), straight("c", 900, 50)} {
		if err := env.client.RegisterMission(env.ctx, m); err != nil {
			t.Fatalf("RegisterMission %s: %v", m.DroneID(), err)
		}
	}

	results, err := env.client.CheckFleet(env.ctx)
	if err != nil {
		t.Fatalf("CheckFleet: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("CheckFleet returned %d results, want 3", len(results))
	}
	want := map[string]bool{"a": false, "b": false, "c": true}
	for i, id := range []string{"a", "b", "c"} {
		if results[i].DroneID != id {
			t.Fatalf("results[%d].DroneID = %q, want %q", i, results[i].DroneID, id)
		}
		if results[i].Safe != want[id] {
			t.Fatalf("results[%d].Safe = %v, want %v", i, results[i].Safe, want[id])
		}
		if results[i].PairsChecked != 2 {
			t.Fatalf("results[%d].PairsChecked = %d, want 2", i, results[i].PairsChecked)
		}
	}
}

func TestRequestIDInterceptorHonoursMetadata(t *testing.T) {
	interceptor := RequestIDUnaryServerInterceptor(nil)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDMetadataKey, "req-42"))

	var seen string
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: methodCheckFleet}, func(ctx context.Context, req any) (any, error) {
		seen = logging.RequestIDFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if seen != "req-42" {
		t.Fatalf("request id = %q, want req-42", seen)
	}
}

func TestRequestIDInterceptorGeneratesID(t *testing.T) {
	interceptor := RequestIDUnaryServerInterceptor(logging.Noop())

	var seen string
	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: methodCheckFleet}, func(ctx context.Context, req any) (any, error) {
		seen = logging.RequestIDFromContext(ctx)
		return nil, nil
	})
	if seen == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestTracingInterceptorPassesErrorsThrough(t *testing.T) {
	interceptor := TracingUnaryServerInterceptor()
	boom := errors.New("boom")

	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: methodCheckMission}, func(ctx context.Context, req any) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestMissionStructRoundTrip(t *testing.T) {
	m := model.MustMission("rt", []model.Waypoint{{}, {X: 3, Y: 4, Z: 5}}, 1.5, 9, model.WithSpeed(7))
	s, err := MissionToStruct(m)
	if err != nil {
		t.Fatalf("MissionToStruct: %v", err)
	}
	if got := s.GetFields()["drone_id"].GetStringValue(); got != "rt" {
		t.Fatalf("drone_id field = %q", got)
	}

	back, err := MissionFromStruct(s)
	if err != nil {
		t.Fatalf("MissionFromStruct: %v", err)
	}
	if back.DroneID() != "rt" || back.StartTime() != 1.5 || back.EndTime() != 9 || back.Speed() != 7 {
		t.Fatalf("round trip = %v speed=%v", back, back.Speed())
	}
	if back.Waypoint(1) != model.NewWaypoint(3, 4, 5) {
		t.Fatalf("waypoint = %v", back.Waypoint(1))
	}

	if _, err := MissionFromStruct(nil); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("MissionFromStruct(nil) err = %v", err)
	}
	if _, err := MissionToStruct(nil); !errors.Is(err, core.ErrNilMission) {
		t.Fatalf("MissionToStruct(nil) err = %v", err)
	}
}

