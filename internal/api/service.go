package api

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/uav-deconfliction/core"
	"github.com/signalsfoundry/uav-deconfliction/internal/logging"
	"github.com/signalsfoundry/uav-deconfliction/model"
)

// Service implements DeconflictionServer over a core.DeconflictionService.
//
// Semantics:
//   - RegisterMission replaces any mission with the same drone id.
//   - CheckMission checks the supplied mission as primary; it does not
//     register it.
//   - CheckFleet checks every registered mission against the others.
type Service struct {
	svc *core.DeconflictionService
	log logging.Logger
}

var _ DeconflictionServer = (*Service)(nil)

// NewService constructs a Service bound to svc.
func NewService(svc *core.DeconflictionService, log logging.Logger) *Service {
	if log == nil {
		log = logging.Noop()
	}
	return &Service{svc: svc, log: log}
}

func (s *Service) RegisterMission(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	m, err := MissionFromStruct(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	s.svc.RegisterMission(m)
	s.logger(ctx).Info(ctx, "mission registered",
		logging.String("drone_id", m.DroneID()),
		logging.Int("waypoints", m.NumWaypoints()),
	)
	return &emptypb.Empty{}, nil
}

func (s *Service) ClearMissions(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.svc.ClearMissions()
	s.logger(ctx).Info(ctx, "missions cleared")
	return &emptypb.Empty{}, nil
}

func (s *Service) ListMissions(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	missions := s.svc.Registry().List()
	out := MissionList{Missions: make([]model.MissionSpec, 0, len(missions))}
	for _, m := range missions {
		out.Missions = append(out.Missions, m.Spec())
	}
	resp, err := EncodeStruct(out)
	return resp, ToStatusError(err)
}

func (s *Service) GetMission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var q MissionQuery
	if err := DecodeStruct(req, &q); err != nil {
		return nil, ToStatusError(err)
	}
	if q.DroneID == "" {
		return nil, ToStatusError(fmt.Errorf("%w: drone_id is required", ErrInvalidRequest))
	}
	m, ok := s.svc.Registry().Get(q.DroneID)
	if !ok {
		return nil, ToStatusError(fmt.Errorf("mission %q: %w", q.DroneID, ErrNotFound))
	}
	resp, err := MissionToStruct(m)
	return resp, ToStatusError(err)
}

func (s *Service) CheckMission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	primary, err := MissionFromStruct(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	res, err := s.svc.CheckMission(ctx, primary)
	if err != nil {
		return nil, ToStatusError(err)
	}
	resp, err := EncodeStruct(CheckResponse{
		CheckResult:  res,
		SafetyBuffer: s.svc.SafetyBuffer(),
		Registered:   s.svc.Registry().Len(),
	})
	return resp, ToStatusError(err)
}

func (s *Service) CheckFleet(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	results, err := s.svc.CheckFleet(ctx)
	if err != nil {
		return nil, ToStatusError(err)
	}
	resp, err := EncodeStruct(FleetResult{Results: results})
	return resp, ToStatusError(err)
}

func (s *Service) logger(ctx context.Context) logging.Logger {
	return logging.LoggerFromContext(ctx, s.log)
}
