package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/uav-deconfliction/core"
	"github.com/signalsfoundry/uav-deconfliction/model"
)

// MissionQuery selects a registered mission by drone id.
type MissionQuery struct {
	DroneID string `json:"drone_id"`
}

// MissionList is the ListMissions response payload.
type MissionList struct {
	Missions []model.MissionSpec `json:"missions"`
}

// CheckResponse is the CheckMission response payload: the check result
// plus the server settings it was produced under.
type CheckResponse struct {
	core.CheckResult
	SafetyBuffer float64 `json:"safety_buffer"`
	Registered   int     `json:"registered_missions"`
}

// FleetResult is the CheckFleet response payload.
type FleetResult struct {
	Results []core.CheckResult `json:"results"`
}

// EncodeStruct converts v to a Struct via its JSON encoding. v must encode
// to a JSON object.
func EncodeStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return out, nil
}

// DecodeStruct fills v from s using v's JSON field names.
func DecodeStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return fmt.Errorf("%w: empty payload", ErrInvalidRequest)
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// MissionToStruct encodes a mission as a Struct.
func MissionToStruct(m *model.Mission) (*structpb.Struct, error) {
	if m == nil {
		return nil, core.ErrNilMission
	}
	return EncodeStruct(m.Spec())
}

// MissionFromStruct decodes and validates a mission.
func MissionFromStruct(s *structpb.Struct) (*model.Mission, error) {
	var spec model.MissionSpec
	if err := DecodeStruct(s, &spec); err != nil {
		return nil, err
	}
	return spec.Build()
}
