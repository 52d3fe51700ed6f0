package iconclient

import (
	"context"
	"sort"
	"time"

	"google.golang.org/grpc"

	"github.com/icon-robotics/iconclient/condition"
	"github.com/icon-robotics/iconclient/iconerr"
	"github.com/icon-robotics/iconclient/iconlog"
	"github.com/icon-robotics/iconclient/session"
)

// defaultClientTimeout is the deadline applied to every unary call made
// through a Client that wasn't given a context deadline of its own.
const defaultClientTimeout = 5 * time.Second

// ContextFactory builds the context used for one outgoing call, given the
// caller's context. The default factory applies [defaultClientTimeout]; a
// caller that already attached a deadline of its own is left untouched.
type ContextFactory func(ctx context.Context) (context.Context, context.CancelFunc)

func defaultContextFactory(timeout time.Duration) ContextFactory {
	return func(ctx context.Context) (context.Context, context.CancelFunc) {
		if _, ok := ctx.Deadline(); ok {
			return context.WithCancel(ctx)
		}
		return context.WithTimeout(ctx, timeout)
	}
}

// ServiceClient models the full RPC surface required of a generated ICON API
// client: the session package's duplex streaming methods, plus the unary
// control-surface calls Client wraps. A real binding satisfies this with
// generated gRPC stubs; tests satisfy it with an in-process fake.
type ServiceClient interface {
	session.ActionServiceClient

	GetActionSignatureByName(ctx context.Context, req GetActionSignatureByNameRequest, opts ...grpc.CallOption) (GetActionSignatureByNameResponse, error)
	GetConfig(ctx context.Context, req GetConfigRequest, opts ...grpc.CallOption) (GetConfigResponse, error)
	GetStatus(ctx context.Context, req GetStatusRequest, opts ...grpc.CallOption) (GetStatusResponse, error)
	RestartServer(ctx context.Context, req RestartServerRequest, opts ...grpc.CallOption) (RestartServerResponse, error)
	IsActionCompatible(ctx context.Context, req IsActionCompatibleRequest, opts ...grpc.CallOption) (IsActionCompatibleResponse, error)
	ListActionSignatures(ctx context.Context, req ListActionSignaturesRequest, opts ...grpc.CallOption) (ListActionSignaturesResponse, error)
	ListCompatibleParts(ctx context.Context, req ListCompatiblePartsRequest, opts ...grpc.CallOption) (ListCompatiblePartsResponse, error)
	ListParts(ctx context.Context, req ListPartsRequest, opts ...grpc.CallOption) (ListPartsResponse, error)
	Enable(ctx context.Context, req EnableRequest, opts ...grpc.CallOption) (EnableResponse, error)
	Disable(ctx context.Context, req DisableRequest, opts ...grpc.CallOption) (DisableResponse, error)
	ClearFaults(ctx context.Context, req ClearFaultsRequest, opts ...grpc.CallOption) (ClearFaultsResponse, error)
	GetOperationalStatus(ctx context.Context, req GetOperationalStatusRequest, opts ...grpc.CallOption) (GetOperationalStatusResponse, error)
	SetSpeedOverride(ctx context.Context, req SetSpeedOverrideRequest, opts ...grpc.CallOption) (SetSpeedOverrideResponse, error)
	GetSpeedOverride(ctx context.Context, req GetSpeedOverrideRequest, opts ...grpc.CallOption) (GetSpeedOverrideResponse, error)
	SetPartProperties(ctx context.Context, req SetPartPropertiesRequest, opts ...grpc.CallOption) (SetPartPropertiesResponse, error)
	GetPartProperties(ctx context.Context, req GetPartPropertiesRequest, opts ...grpc.CallOption) (GetPartPropertiesResponse, error)
}

// Request/response pairs for the unary control surface. These mirror the
// oneof-as-struct convention session/transport.go uses for the streaming
// surface: plain Go structs rather than generated protobuf messages, per the
// wire/transport Open Question decision recorded in DESIGN.md.
type (
	GetActionSignatureByNameRequest  struct{ ActionTypeName string }
	GetActionSignatureByNameResponse struct {
		ActionSignature ActionSignature
		Found           bool
	}

	GetConfigRequest  struct{}
	GetConfigResponse struct{ Config RobotConfig }

	GetStatusRequest  struct{}
	GetStatusResponse struct{ Snapshot StatusSnapshot }

	RestartServerRequest  struct{}
	RestartServerResponse struct{}

	IsActionCompatibleRequest struct {
		PartName       string
		HasPartName    bool
		SlotPartMap    session.SlotPartMap
		HasSlotPartMap bool
		ActionTypeName string
	}
	IsActionCompatibleResponse struct{ Compatible bool }

	ListActionSignaturesRequest  struct{}
	ListActionSignaturesResponse struct{ ActionSignatures []ActionSignature }

	ListCompatiblePartsRequest  struct{ ActionTypeNames []string }
	ListCompatiblePartsResponse struct{ Parts []string }

	ListPartsRequest  struct{}
	ListPartsResponse struct{ Parts []string }

	EnableRequest  struct{}
	EnableResponse struct{}

	DisableRequest  struct{}
	DisableResponse struct{}

	ClearFaultsRequest  struct{}
	ClearFaultsResponse struct{}

	GetOperationalStatusRequest  struct{}
	GetOperationalStatusResponse struct{ OperationalStatus OperationalStatus }

	SetSpeedOverrideRequest  struct{ OverrideFactor float64 }
	SetSpeedOverrideResponse struct{}

	GetSpeedOverrideRequest  struct{}
	GetSpeedOverrideResponse struct{ OverrideFactor float64 }

	SetPartPropertiesRequest  struct{ Properties PartPropertyMap }
	SetPartPropertiesResponse struct{}

	GetPartPropertiesRequest  struct{}
	GetPartPropertiesResponse struct{ Properties TimestampedPartProperties }
)

// ClientOption configures a Client at construction time.
type ClientOption func(*clientConfig)

type clientConfig struct {
	logger         iconlog.Logger
	contextFactory ContextFactory
	timeout        time.Duration
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		logger:  iconlog.Nop,
		timeout: defaultClientTimeout,
	}
}

// WithClientLogger configures the logger used for best-effort diagnostics
// (currently: a warning when RestartServer returns an error, and a warning
// for each duplicate action type name seen by ListActionSignatures).
func WithClientLogger(logger iconlog.Logger) ClientOption {
	return func(c *clientConfig) { c.logger = logger }
}

// WithClientTimeout overrides the default per-call deadline applied by the
// default context factory. Ignored if [WithContextFactory] is also given.
// The default is 5 seconds.
func WithClientTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = timeout }
}

// WithContextFactory overrides how each unary call's context is derived from
// the caller's context, taking full control away from [WithClientTimeout].
func WithContextFactory(factory ContextFactory) ClientOption {
	return func(c *clientConfig) { c.contextFactory = factory }
}

// Client is the unary control surface for one ICON server: enable/disable,
// part and action-signature discovery, speed override, part properties, and
// config/status queries. Every call obtains a fresh per-call context from
// the configured [ContextFactory] and applies the client's default
// deadline, mirroring the original C++ client's per-call ClientContext.
//
// Use [Client.StartSession] to begin a streaming [session.Session] for
// issuing and reacting to actions.
type Client struct {
	client         ServiceClient
	logger         iconlog.Logger
	contextFactory ContextFactory
}

// NewClient wraps client, an RPC binding satisfying [ServiceClient], as a
// Client.
func NewClient(client ServiceClient, opts ...ClientOption) *Client {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	contextFactory := cfg.contextFactory
	if contextFactory == nil {
		contextFactory = defaultContextFactory(cfg.timeout)
	}
	return &Client{
		client:         client,
		logger:         cfg.logger,
		contextFactory: contextFactory,
	}
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return c.contextFactory(ctx)
}

// StartSession opens a streaming session scoped to parts. The returned
// [session.Session] must eventually be ended with [session.Session.End].
func (c *Client) StartSession(ctx context.Context, parts []string, opts ...session.Option) (*session.Session, error) {
	return session.Start(ctx, c.client, parts, opts...)
}

// Enable enables the robot; actions cannot run while disabled.
func (c *Client) Enable(ctx context.Context) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	_, err := c.client.Enable(ctx, EnableRequest{})
	return err
}

// Disable disables the robot.
func (c *Client) Disable(ctx context.Context) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	_, err := c.client.Disable(ctx, DisableRequest{})
	return err
}

// ClearFaults attempts to clear a faulted operational status.
func (c *Client) ClearFaults(ctx context.Context) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	_, err := c.client.ClearFaults(ctx, ClearFaultsRequest{})
	return err
}

// GetOperationalStatus reports whether the server is disabled, enabled, or
// faulted.
func (c *Client) GetOperationalStatus(ctx context.Context) (OperationalStatus, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	resp, err := c.client.GetOperationalStatus(ctx, GetOperationalStatusRequest{})
	if err != nil {
		return OperationalStatusUnspecified, err
	}
	return resp.OperationalStatus, nil
}

// GetConfig returns the server's overall and per-part configuration.
func (c *Client) GetConfig(ctx context.Context) (RobotConfig, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	resp, err := c.client.GetConfig(ctx, GetConfigRequest{})
	if err != nil {
		return RobotConfig{}, err
	}
	return resp.Config, nil
}

// GetStatus returns the latest sensed state for every part.
func (c *Client) GetStatus(ctx context.Context) (StatusSnapshot, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	resp, err := c.client.GetStatus(ctx, GetStatusRequest{})
	if err != nil {
		return StatusSnapshot{}, err
	}
	return resp.Snapshot, nil
}

// GetSinglePartStatus returns the latest sensed state for partName, fetched
// via a full [Client.GetStatus] call (the server has no single-part status
// RPC; this exists for caller convenience, matching the original client).
func (c *Client) GetSinglePartStatus(ctx context.Context, partName string) (PartStatus, error) {
	snapshot, err := c.GetStatus(ctx)
	if err != nil {
		return PartStatus{}, err
	}
	status, ok := snapshot.PartStatuses[partName]
	if !ok {
		return PartStatus{}, iconerr.NotFound("robot status does not contain part status for part %q", partName)
	}
	return status, nil
}

// RestartServer asks the server to restart. This is best-effort: the caller
// must expect the transport to be lost as a result, and any in-flight
// session to end abnormally.
func (c *Client) RestartServer(ctx context.Context) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	_, err := c.client.RestartServer(ctx, RestartServerRequest{})
	if err != nil {
		c.logger.Warning().Err(err).Log("restart server: transport likely lost")
	}
	return err
}

// IsActionCompatible reports whether actionTypeName could be instantiated on
// partName.
func (c *Client) IsActionCompatible(ctx context.Context, partName, actionTypeName string) (bool, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	resp, err := c.client.IsActionCompatible(ctx, IsActionCompatibleRequest{
		PartName:       partName,
		HasPartName:    true,
		ActionTypeName: actionTypeName,
	})
	if err != nil {
		return false, err
	}
	return resp.Compatible, nil
}

// IsActionCompatibleSlotMap reports whether actionTypeName could be
// instantiated against slotPartMap.
func (c *Client) IsActionCompatibleSlotMap(ctx context.Context, slotPartMap session.SlotPartMap, actionTypeName string) (bool, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	resp, err := c.client.IsActionCompatible(ctx, IsActionCompatibleRequest{
		SlotPartMap:    slotPartMap,
		HasSlotPartMap: true,
		ActionTypeName: actionTypeName,
	})
	if err != nil {
		return false, err
	}
	return resp.Compatible, nil
}

// ListActionSignatures lists every action type the server can instantiate,
// sorted by action type name. A server returning duplicate type names is a
// protocol anomaly; duplicates are logged and retained rather than dropped.
func (c *Client) ListActionSignatures(ctx context.Context) ([]ActionSignature, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	resp, err := c.client.ListActionSignatures(ctx, ListActionSignaturesRequest{})
	if err != nil {
		return nil, err
	}
	out := append([]ActionSignature(nil), resp.ActionSignatures...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ActionTypeName < out[j].ActionTypeName
	})
	for i := 1; i < len(out); i++ {
		if out[i].ActionTypeName == out[i-1].ActionTypeName {
			c.logger.Warning().Str("action_type_name", out[i].ActionTypeName).Log("server returned duplicate action type name")
		}
	}
	return out, nil
}

// ListCompatibleParts lists the parts compatible with every action type
// named in actionTypeNames.
func (c *Client) ListCompatibleParts(ctx context.Context, actionTypeNames []string) ([]string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	resp, err := c.client.ListCompatibleParts(ctx, ListCompatiblePartsRequest{ActionTypeNames: actionTypeNames})
	if err != nil {
		return nil, err
	}
	return resp.Parts, nil
}

// ListParts lists every part known to the server.
func (c *Client) ListParts(ctx context.Context) ([]string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	resp, err := c.client.ListParts(ctx, ListPartsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Parts, nil
}

// GetActionSignatureByName looks up one action signature by name, failing
// with [iconerr.NotFound] if the type is unknown.
func (c *Client) GetActionSignatureByName(ctx context.Context, actionTypeName string) (ActionSignature, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	resp, err := c.client.GetActionSignatureByName(ctx, GetActionSignatureByNameRequest{ActionTypeName: actionTypeName})
	if err != nil {
		return ActionSignature{}, err
	}
	if !resp.Found {
		return ActionSignature{}, iconerr.NotFound("could not get action signature: action type %q not found", actionTypeName)
	}
	return resp.ActionSignature, nil
}

// SetSpeedOverride sets the global speed override factor.
func (c *Client) SetSpeedOverride(ctx context.Context, overrideFactor float64) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	_, err := c.client.SetSpeedOverride(ctx, SetSpeedOverrideRequest{OverrideFactor: overrideFactor})
	return err
}

// GetSpeedOverride returns the current global speed override factor.
func (c *Client) GetSpeedOverride(ctx context.Context) (float64, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	resp, err := c.client.GetSpeedOverride(ctx, GetSpeedOverrideRequest{})
	if err != nil {
		return 0, err
	}
	return resp.OverrideFactor, nil
}

// SetPartProperties sets one or more part properties in a single round
// trip. The call returns before the new values are necessarily observed by
// GetPartProperties or in a status snapshot.
func (c *Client) SetPartProperties(ctx context.Context, properties PartPropertyMap) error {
	for partName, props := range properties.Properties {
		for propertyName, value := range props {
			if value.Kind == condition.ValueKindInt64 {
				return iconerr.InvalidArgument(
					"part property %s.%s: int64 values are not supported, use bool or double", partName, propertyName)
			}
		}
	}
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	_, err := c.client.SetPartProperties(ctx, SetPartPropertiesRequest{Properties: properties})
	return err
}

// SetPartProperty is a convenience wrapper around [Client.SetPartProperties]
// for setting a single property. Prefer SetPartProperties when setting more
// than one property, to avoid multiple round trips.
func (c *Client) SetPartProperty(ctx context.Context, partName, propertyName string, value condition.Value) error {
	m := NewPartPropertyMap()
	if err := m.Set(partName, propertyName, value); err != nil {
		return err
	}
	return c.SetPartProperties(ctx, m)
}

// GetPartProperties returns the current value of every known part property,
// with the wall-clock and control-loop timestamps of the snapshot.
func (c *Client) GetPartProperties(ctx context.Context) (TimestampedPartProperties, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	resp, err := c.client.GetPartProperties(ctx, GetPartPropertiesRequest{})
	if err != nil {
		return TimestampedPartProperties{}, err
	}
	return resp.Properties, nil
}
