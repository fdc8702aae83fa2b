package installer

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/npcforge/forge-installer/internal/archive"
	"github.com/npcforge/forge-installer/internal/compose"
	"github.com/npcforge/forge-installer/internal/download"
	"github.com/npcforge/forge-installer/internal/launch"
	"github.com/npcforge/forge-installer/internal/logger"
	"github.com/npcforge/forge-installer/internal/progress"
	"github.com/npcforge/forge-installer/internal/repository/keystore"
	"github.com/npcforge/forge-installer/internal/resolver"
	"github.com/npcforge/forge-installer/internal/runtimeprobe"
	svc "github.com/npcforge/forge-installer/internal/service/installer"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	ResolveAndDownloadLatest(ctx context.Context, force bool) (*svc.APIResult, error)
	ComposeUp(ctx context.Context) (*compose.Result, error)
	DownloadGame(ctx context.Context) (*svc.GameResult, error)
	LaunchGame(ctx context.Context) *launch.Result
	SetSecret(ctx context.Context, key, value string) error
	GetSecret(ctx context.Context, key string) (*svc.SecretResult, error)
	Secrets(ctx context.Context) (map[string]string, error)
	Paths() svc.Paths
	RuntimeStatus(ctx context.Context) runtimeprobe.Status
	Progress() *progress.Broadcaster
}

// DownloadAPIRequest is the request of DownloadAPI.
type DownloadAPIRequest struct {
	Force bool `json:"force"`
}

// SetSecretRequest is the request of SetSecret.
type SetSecretRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SetSecretResponse is the response of SetSecret.
type SetSecretResponse struct {
	OK bool `json:"ok"`
}

// GetSecretRequest is the request of GetSecret. An empty key lists every secret.
type GetSecretRequest struct {
	Key string `json:"key,omitempty"`
}

// SecretsResponse is the response of GetSecret without a key.
type SecretsResponse struct {
	Secrets map[string]string `json:"secrets"`
}

// Server implements InstallerServer on top of the installer service.
type Server struct {
	// service provides the installer operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// DownloadAPI installs the latest api release.
func (s *Server) DownloadAPI(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var request DownloadAPIRequest
	if err := Decode(req, &request); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.service.ResolveAndDownloadLatest(detach(ctx), request.Force)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return respond(result)
}

// ComposeUp brings the api deployment up.
func (s *Server) ComposeUp(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	result, err := s.service.ComposeUp(detach(ctx))
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return respond(result)
}

// DownloadGame downloads the game release.
func (s *Server) DownloadGame(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	result, err := s.service.DownloadGame(detach(ctx))
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return respond(result)
}

// LaunchGame opens the installed game.
func (s *Server) LaunchGame(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return respond(s.service.LaunchGame(detach(ctx)))
}

// SetSecret stores a secret.
func (s *Server) SetSecret(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var request SetSecretRequest
	if err := Decode(req, &request); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if strings.TrimSpace(request.Key) == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	if err := s.service.SetSecret(ctx, request.Key, request.Value); err != nil {
		return nil, toStatus(ctx, err)
	}

	return respond(SetSecretResponse{OK: true})
}

// GetSecret returns one secret, or all of them when no key is given.
func (s *Server) GetSecret(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var request GetSecretRequest
	if err := Decode(req, &request); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if strings.TrimSpace(request.Key) == "" {
		secrets, err := s.service.Secrets(ctx)
		if err != nil {
			return nil, toStatus(ctx, err)
		}

		return respond(SecretsResponse{Secrets: secrets})
	}

	result, err := s.service.GetSecret(ctx, request.Key)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return respond(result)
}

// GetPaths returns the install directories.
func (s *Server) GetPaths(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return respond(s.service.Paths())
}

// CheckRuntime reports the container runtime status.
func (s *Server) CheckRuntime(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return respond(s.service.RuntimeStatus(ctx))
}

// WatchProgress streams download progress until the client goes away.
func (s *Server) WatchProgress(_ *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()

	events, unsubscribe := s.service.Progress().Subscribe()
	defer unsubscribe()

	logger.Debug(ctx, "Progress watcher connected")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}

			message, err := Encode(event)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}

			if err = stream.SendMsg(message); err != nil {
				return err
			}
		}
	}
}

// detach keeps request values but drops cancellation: operations run to
// completion once started.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func respond(v any) (*structpb.Struct, error) {
	message, err := Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return message, nil
}

// toStatus maps installer errors onto gRPC status codes.
func toStatus(ctx context.Context, err error) error {
	var (
		remoteErr     *resolver.RemoteError
		downloadErr   *download.DownloadError
		extractionErr *archive.ExtractionError
		code          = codes.Internal
	)

	switch {
	case errors.As(err, &remoteErr):
		code = codes.Unavailable
	case errors.Is(err, resolver.ErrNoDownloadableArtifact):
		code = codes.FailedPrecondition
	case errors.Is(err, keystore.ErrEmptyKey):
		code = codes.InvalidArgument
	case errors.As(err, &downloadErr), errors.As(err, &extractionErr):
		code = codes.Internal
	}

	logger.ErrorKV(ctx, "Installer operation failed", "code", code.String(), "error", err)

	return status.Error(code, err.Error())
}
