//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/lvc/internal/api/grpc/controller"
	"github.com/oshokin/lvc/internal/config"
	"github.com/oshokin/lvc/internal/domain/voltvar"
	"github.com/oshokin/lvc/internal/wire"
)

// Client wraps a gRPC connection to the controller API with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the controller.
	conn *grpc.ClientConn

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errActorRequired is returned when an actor is not provided but is required for the operation.
	errActorRequired = errors.New("actor must be provided")
)

// Dial establishes a gRPC connection to the controller.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial controller: %w", err)
	}

	client := &Client{
		conn:        conn,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetSubstation retrieves the control state of one substation.
func (c *Client) GetSubstation(ctx context.Context, substationID string) (*voltvar.SubstationControlState, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, api.FullMethodGetSubstation, wrapperspb.String(substationID), resp); err != nil {
		return nil, fmt.Errorf("get substation: %w", err)
	}

	return wire.SubstationFromStruct(resp)
}

// ListSubstations retrieves the control state of every substation.
func (c *Client) ListSubstations(ctx context.Context) ([]*voltvar.SubstationControlState, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp := new(structpb.ListValue)
	if err := c.conn.Invoke(callCtx, api.FullMethodListSubstations, new(emptypb.Empty), resp); err != nil {
		return nil, fmt.Errorf("list substations: %w", err)
	}

	return wire.SubstationsFromList(resp)
}

// IssueControl arms a control on a transformer and returns the updated substation.
func (c *Client) IssueControl(
	ctx context.Context,
	substationID, deviceID string,
	kind voltvar.ControlKind,
	actor *voltvar.Actor,
) (*voltvar.SubstationControlState, error) {
	if actor == nil {
		return nil, errActorRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request := wire.ControlRequestToStruct(&wire.ControlRequest{
		SubstationID: substationID,
		DeviceID:     deviceID,
		Kind:         kind,
		Actor:        actor,
	})

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, api.FullMethodIssueControl, request, resp); err != nil {
		return nil, fmt.Errorf("issue control: %w", err)
	}

	return wire.SubstationFromStruct(resp)
}

// ListEvents retrieves the events recently emitted by the controller.
func (c *Client) ListEvents(ctx context.Context) ([]voltvar.Event, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp := new(structpb.ListValue)
	if err := c.conn.Invoke(callCtx, api.FullMethodListEvents, new(emptypb.Empty), resp); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	return wire.EventsFromList(resp)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
