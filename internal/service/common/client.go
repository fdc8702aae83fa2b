//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/npcforge/forge-installer/internal/api/grpc/installer"
	"github.com/npcforge/forge-installer/internal/compose"
	"github.com/npcforge/forge-installer/internal/launch"
	"github.com/npcforge/forge-installer/internal/progress"
	"github.com/npcforge/forge-installer/internal/runtimeprobe"
	"github.com/npcforge/forge-installer/internal/service/installer"
)

// Client wraps a gRPC connection to the installer service with typed helpers.
type Client struct {
	// conn is the underlying gRPC connection to the installer server.
	conn grpc.ClientConnInterface
	// closer releases conn.
	closer io.Closer
	// actor is attached to every call when set.
	actor *Actor

	// callTimeout bounds individual RPC calls; zero means no bound.
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

// WithActor attaches actor to every call.
func WithActor(actor *Actor) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the installer server.
// Note: this uses insecure transport credentials; the server is meant to
// listen on loopback for the local UI shell.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial installer server: %w", err)
	}

	client := NewClient(conn, opts...)
	client.closer = conn

	return client, nil
}

// NewClient wraps an existing connection. Close does not close conn.
func NewClient(conn grpc.ClientConnInterface, opts ...Option) *Client {
	client := &Client{
		conn: conn,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}

	return c.closer.Close()
}

// ResolveAndDownloadLatest installs the latest api release on the server.
func (c *Client) ResolveAndDownloadLatest(ctx context.Context, force bool) (*installer.APIResult, error) {
	result := new(installer.APIResult)
	if err := c.call(ctx, api.MethodDownloadAPI, api.DownloadAPIRequest{Force: force}, result); err != nil {
		return nil, err
	}

	return result, nil
}

// ComposeUp brings the api deployment up on the server.
func (c *Client) ComposeUp(ctx context.Context) (*compose.Result, error) {
	result := new(compose.Result)
	if err := c.call(ctx, api.MethodComposeUp, struct{}{}, result); err != nil {
		return nil, err
	}

	return result, nil
}

// DownloadGame downloads the game release on the server.
func (c *Client) DownloadGame(ctx context.Context) (*installer.GameResult, error) {
	result := new(installer.GameResult)
	if err := c.call(ctx, api.MethodDownloadGame, struct{}{}, result); err != nil {
		return nil, err
	}

	return result, nil
}

// LaunchGame opens the installed game on the server machine.
func (c *Client) LaunchGame(ctx context.Context) (*launch.Result, error) {
	result := new(launch.Result)
	if err := c.call(ctx, api.MethodLaunchGame, struct{}{}, result); err != nil {
		return nil, err
	}

	return result, nil
}

// SetSecret stores a secret on the server.
func (c *Client) SetSecret(ctx context.Context, key, value string) error {
	return c.call(ctx, api.MethodSetSecret, api.SetSecretRequest{Key: key, Value: value}, new(api.SetSecretResponse))
}

// GetSecret returns one secret.
func (c *Client) GetSecret(ctx context.Context, key string) (*installer.SecretResult, error) {
	result := new(installer.SecretResult)
	if err := c.call(ctx, api.MethodGetSecret, api.GetSecretRequest{Key: key}, result); err != nil {
		return nil, err
	}

	return result, nil
}

// Secrets returns every secret.
func (c *Client) Secrets(ctx context.Context) (map[string]string, error) {
	result := new(api.SecretsResponse)
	if err := c.call(ctx, api.MethodGetSecret, api.GetSecretRequest{}, result); err != nil {
		return nil, err
	}

	if result.Secrets == nil {
		result.Secrets = map[string]string{}
	}

	return result.Secrets, nil
}

// Paths returns the install directories of the server.
func (c *Client) Paths(ctx context.Context) (installer.Paths, error) {
	var result installer.Paths
	if err := c.call(ctx, api.MethodGetPaths, struct{}{}, &result); err != nil {
		return installer.Paths{}, err
	}

	return result, nil
}

// RuntimeStatus reports the container runtime of the server machine.
func (c *Client) RuntimeStatus(ctx context.Context) (runtimeprobe.Status, error) {
	var result runtimeprobe.Status
	if err := c.call(ctx, api.MethodCheckRuntime, struct{}{}, &result); err != nil {
		return runtimeprobe.Status{}, err
	}

	return result, nil
}

// WatchProgress calls fn for every progress event until ctx is done or the
// server closes the stream. The call timeout does not apply.
func (c *Client) WatchProgress(ctx context.Context, fn func(progress.Event)) error {
	ctx = c.actor.AppendToOutgoing(ctx)

	stream, err := c.conn.NewStream(ctx, api.WatchProgressStreamDesc, api.FullMethod(api.MethodWatchProgress))
	if err != nil {
		return fmt.Errorf("watch progress: %w", err)
	}

	if err = stream.SendMsg(new(structpb.Struct)); err != nil {
		return fmt.Errorf("watch progress: %w", err)
	}

	if err = stream.CloseSend(); err != nil {
		return fmt.Errorf("watch progress: %w", err)
	}

	for {
		message := new(structpb.Struct)
		if err = stream.RecvMsg(message); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("watch progress: %w", err)
		}

		var event progress.Event
		if err = api.Decode(message, &event); err != nil {
			return err
		}

		fn(event)
	}
}

// call performs a unary call with Struct messages.
func (c *Client) call(ctx context.Context, method string, request, response any) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	req, err := api.Encode(request)
	if err != nil {
		return err
	}

	reply := new(structpb.Struct)
	if err = c.conn.Invoke(callCtx, api.FullMethod(method), req, reply); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	return api.Decode(reply, response)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = c.actor.AppendToOutgoing(ctx)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
