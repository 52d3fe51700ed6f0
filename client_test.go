package iconclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"github.com/icon-robotics/iconclient/condition"
	"github.com/icon-robotics/iconclient/iconerr"
	"github.com/icon-robotics/iconclient/session"
)

// fakeServiceClient is an in-process ServiceClient; the streaming methods
// are unused by these tests and return errors if called.
type fakeServiceClient struct {
	enableCalls    int
	operational    OperationalStatus
	actionSigs     []ActionSignature
	getActionSig   func(name string) (ActionSignature, bool)
	partsCompat    bool
	restartErr     error
	speedOverride  float64
	properties     TimestampedPartProperties
}

func (f *fakeServiceClient) OpenSession(ctx context.Context, opts ...grpc.CallOption) (session.ClientStream[session.OpenSessionRequest, session.OpenSessionResponse], error) {
	return nil, iconerr.Internal("not implemented in fake")
}

func (f *fakeServiceClient) WatchReactions(ctx context.Context, opts ...grpc.CallOption) (session.ClientStream[session.WatchReactionsRequest, session.WatchReactionsResponse], error) {
	return nil, iconerr.Internal("not implemented in fake")
}

func (f *fakeServiceClient) OpenStreamInput(ctx context.Context, opts ...grpc.CallOption) (session.ClientStream[session.StreamInputRequest, session.StreamInputResponse], error) {
	return nil, iconerr.Internal("not implemented in fake")
}

func (f *fakeServiceClient) GetLatestOutput(ctx context.Context, req session.GetLatestOutputRequest) (session.GetLatestOutputResponse, error) {
	return session.GetLatestOutputResponse{}, nil
}

func (f *fakeServiceClient) GetPlannedTrajectory(ctx context.Context, req session.GetPlannedTrajectoryRequest) (session.GetPlannedTrajectoryResponse, error) {
	return session.GetPlannedTrajectoryResponse{}, nil
}

func (f *fakeServiceClient) GetActionSignatureByName(ctx context.Context, req GetActionSignatureByNameRequest, opts ...grpc.CallOption) (GetActionSignatureByNameResponse, error) {
	if f.getActionSig == nil {
		return GetActionSignatureByNameResponse{}, nil
	}
	sig, ok := f.getActionSig(req.ActionTypeName)
	return GetActionSignatureByNameResponse{ActionSignature: sig, Found: ok}, nil
}

func (f *fakeServiceClient) GetConfig(ctx context.Context, req GetConfigRequest, opts ...grpc.CallOption) (GetConfigResponse, error) {
	return GetConfigResponse{Config: RobotConfig{ControlFrequencyHz: 250, ServerName: "fake"}}, nil
}

func (f *fakeServiceClient) GetStatus(ctx context.Context, req GetStatusRequest, opts ...grpc.CallOption) (GetStatusResponse, error) {
	return GetStatusResponse{Snapshot: StatusSnapshot{PartStatuses: map[string]PartStatus{
		"arm": {PartName: "arm", StateVariables: map[string]condition.Value{"@arm.is_enabled": condition.BoolValue(true)}},
	}}}, nil
}

func (f *fakeServiceClient) RestartServer(ctx context.Context, req RestartServerRequest, opts ...grpc.CallOption) (RestartServerResponse, error) {
	return RestartServerResponse{}, f.restartErr
}

func (f *fakeServiceClient) IsActionCompatible(ctx context.Context, req IsActionCompatibleRequest, opts ...grpc.CallOption) (IsActionCompatibleResponse, error) {
	return IsActionCompatibleResponse{Compatible: f.partsCompat}, nil
}

func (f *fakeServiceClient) ListActionSignatures(ctx context.Context, req ListActionSignaturesRequest, opts ...grpc.CallOption) (ListActionSignaturesResponse, error) {
	return ListActionSignaturesResponse{ActionSignatures: f.actionSigs}, nil
}

func (f *fakeServiceClient) ListCompatibleParts(ctx context.Context, req ListCompatiblePartsRequest, opts ...grpc.CallOption) (ListCompatiblePartsResponse, error) {
	return ListCompatiblePartsResponse{Parts: []string{"arm"}}, nil
}

func (f *fakeServiceClient) ListParts(ctx context.Context, req ListPartsRequest, opts ...grpc.CallOption) (ListPartsResponse, error) {
	return ListPartsResponse{Parts: []string{"arm", "gripper"}}, nil
}

func (f *fakeServiceClient) Enable(ctx context.Context, req EnableRequest, opts ...grpc.CallOption) (EnableResponse, error) {
	f.enableCalls++
	return EnableResponse{}, nil
}

func (f *fakeServiceClient) Disable(ctx context.Context, req DisableRequest, opts ...grpc.CallOption) (DisableResponse, error) {
	return DisableResponse{}, nil
}

func (f *fakeServiceClient) ClearFaults(ctx context.Context, req ClearFaultsRequest, opts ...grpc.CallOption) (ClearFaultsResponse, error) {
	return ClearFaultsResponse{}, nil
}

func (f *fakeServiceClient) GetOperationalStatus(ctx context.Context, req GetOperationalStatusRequest, opts ...grpc.CallOption) (GetOperationalStatusResponse, error) {
	return GetOperationalStatusResponse{OperationalStatus: f.operational}, nil
}

func (f *fakeServiceClient) SetSpeedOverride(ctx context.Context, req SetSpeedOverrideRequest, opts ...grpc.CallOption) (SetSpeedOverrideResponse, error) {
	f.speedOverride = req.OverrideFactor
	return SetSpeedOverrideResponse{}, nil
}

func (f *fakeServiceClient) GetSpeedOverride(ctx context.Context, req GetSpeedOverrideRequest, opts ...grpc.CallOption) (GetSpeedOverrideResponse, error) {
	return GetSpeedOverrideResponse{OverrideFactor: f.speedOverride}, nil
}

func (f *fakeServiceClient) SetPartProperties(ctx context.Context, req SetPartPropertiesRequest, opts ...grpc.CallOption) (SetPartPropertiesResponse, error) {
	return SetPartPropertiesResponse{}, nil
}

func (f *fakeServiceClient) GetPartProperties(ctx context.Context, req GetPartPropertiesRequest, opts ...grpc.CallOption) (GetPartPropertiesResponse, error) {
	return GetPartPropertiesResponse{Properties: f.properties}, nil
}

func TestClient_Enable_invokesUnderlyingCall(t *testing.T) {
	fc := &fakeServiceClient{}
	c := NewClient(fc)
	require.NoError(t, c.Enable(context.Background()))
	require.Equal(t, 1, fc.enableCalls)
}

func TestClient_GetOperationalStatus(t *testing.T) {
	fc := &fakeServiceClient{operational: OperationalStatusFaulted}
	c := NewClient(fc)
	status, err := c.GetOperationalStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, OperationalStatusFaulted, status)
	require.Equal(t, "FAULTED", status.String())
}

func TestClient_GetActionSignatureByName_notFound(t *testing.T) {
	fc := &fakeServiceClient{getActionSig: func(name string) (ActionSignature, bool) { return ActionSignature{}, false }}
	c := NewClient(fc)
	_, err := c.GetActionSignatureByName(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, iconerr.Is(err, codes.NotFound))
}

func TestClient_GetSinglePartStatus(t *testing.T) {
	fc := &fakeServiceClient{}
	c := NewClient(fc)
	status, err := c.GetSinglePartStatus(context.Background(), "arm")
	require.NoError(t, err)
	require.Equal(t, "arm", status.PartName)

	_, err = c.GetSinglePartStatus(context.Background(), "missing")
	require.Error(t, err)
}

func TestClient_ListActionSignatures_sortsAndLogsDuplicates(t *testing.T) {
	fc := &fakeServiceClient{actionSigs: []ActionSignature{
		{ActionTypeName: "stop"},
		{ActionTypeName: "grip"},
		{ActionTypeName: "grip"},
	}}
	c := NewClient(fc)
	sigs, err := c.ListActionSignatures(context.Background())
	require.NoError(t, err)
	require.Len(t, sigs, 3)
	require.Equal(t, "grip", sigs[0].ActionTypeName)
	require.Equal(t, "grip", sigs[1].ActionTypeName)
	require.Equal(t, "stop", sigs[2].ActionTypeName)
}

func TestClient_SetAndGetSpeedOverride(t *testing.T) {
	fc := &fakeServiceClient{}
	c := NewClient(fc)
	require.NoError(t, c.SetSpeedOverride(context.Background(), 0.5))
	got, err := c.GetSpeedOverride(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0.5, got)
}

func TestClient_IsActionCompatible(t *testing.T) {
	fc := &fakeServiceClient{partsCompat: true}
	c := NewClient(fc)
	ok, err := c.IsActionCompatible(context.Background(), "arm", "stop")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestClient_SetPartProperty_rejectsInt64Value(t *testing.T) {
	fc := &fakeServiceClient{}
	c := NewClient(fc)
	err := c.SetPartProperty(context.Background(), "arm", "retry_count", condition.IntValue(3))
	require.Error(t, err)
	require.True(t, iconerr.Is(err, codes.InvalidArgument))
}

func TestPartPropertyMap_Set_rejectsInt64Value(t *testing.T) {
	m := NewPartPropertyMap()
	err := m.Set("arm", "retry_count", condition.IntValue(3))
	require.Error(t, err)
	require.True(t, iconerr.Is(err, codes.InvalidArgument))
}

func TestClient_WithClientTimeout_appliesDefaultDeadline(t *testing.T) {
	fc := &fakeServiceClient{}
	c := NewClient(fc, WithClientTimeout(10*time.Millisecond))
	ctx, cancel := c.callCtx(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 5*time.Second)
}
