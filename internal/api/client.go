package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/uav-deconfliction/core"
	"github.com/signalsfoundry/uav-deconfliction/model"
)

// Client is a typed client for the deconfliction service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) RegisterMission(ctx context.Context, m *model.Mission, opts ...grpc.CallOption) error {
	req, err := MissionToStruct(m)
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, methodRegisterMission, req, new(emptypb.Empty), opts...)
}

func (c *Client) ClearMissions(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, methodClearMissions, &emptypb.Empty{}, new(emptypb.Empty), opts...)
}

func (c *Client) ListMissions(ctx context.Context, opts ...grpc.CallOption) ([]*model.Mission, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListMissions, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	var list MissionList
	if err := DecodeStruct(out, &list); err != nil {
		return nil, err
	}
	missions := make([]*model.Mission, 0, len(list.Missions))
	for _, spec := range list.Missions {
		m, err := spec.Build()
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}
	return missions, nil
}

func (c *Client) GetMission(ctx context.Context, droneID string, opts ...grpc.CallOption) (*model.Mission, error) {
	req, err := EncodeStruct(MissionQuery{DroneID: droneID})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetMission, req, out, opts...); err != nil {
		return nil, err
	}
	return MissionFromStruct(out)
}

func (c *Client) CheckMission(ctx context.Context, primary *model.Mission, opts ...grpc.CallOption) (CheckResponse, error) {
	req, err := MissionToStruct(primary)
	if err != nil {
		return CheckResponse{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodCheckMission, req, out, opts...); err != nil {
		return CheckResponse{}, err
	}
	var resp CheckResponse
	err = DecodeStruct(out, &resp)
	return resp, err
}

func (c *Client) CheckFleet(ctx context.Context, opts ...grpc.CallOption) ([]core.CheckResult, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodCheckFleet, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	var fleet FleetResult
	if err := DecodeStruct(out, &fleet); err != nil {
		return nil, err
	}
	return fleet.Results, nil
}
