package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/npcforge/forge-installer/internal/api/grpc/installer"
	"github.com/npcforge/forge-installer/internal/config"
	"github.com/npcforge/forge-installer/internal/logger"
	"github.com/npcforge/forge-installer/internal/service/common"
	"github.com/npcforge/forge-installer/internal/service/installer"
)

// Options controls the installer server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// BaseDir overrides the base directory from the settings.
	BaseDir string
	// Listening is called with the bound address once the listener is ready.
	Listening func(addr net.Addr)
	// ServiceOptions are passed to the installer service.
	ServiceOptions []installer.Option
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the gRPC server and blocks until context is canceled or server stops.
// Loads configuration first, then determines listen address from config or override.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "forge-server")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.BaseDir != "" {
		settings.BaseDir = opts.BaseDir
	}

	listenAddress, err := resolveListenAddress(settings.Server.ListenAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	service, err := installer.New(ctx, settings, opts.ServiceOptions...)
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(logUnary),
		grpc.ChainStreamInterceptor(logStream),
	)
	api.RegisterInstallerServer(grpcServer, api.NewServer(service))

	logger.InfoKV(ctx, "Installer server listening",
		"listen_address", lis.Addr().String(),
		"base_dir", settings.BaseDir)

	if opts.Listening != nil {
		opts.Listening(lis.Addr())
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if serveErr := grpcServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", serveErr)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()

		return nil
	})

	if err = group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// The override wins over the configured address. Both must be host:port.
func resolveListenAddress(configAddr, override string) (string, error) {
	address := configAddr
	if override != "" {
		address = override
	}

	if address == "" {
		return "", ErrNoServerAddress
	}

	if _, _, err := net.SplitHostPort(address); err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", address, err)
	}

	return address, nil
}

// logUnary logs every unary call with its caller.
func logUnary(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	ctx = withCaller(ctx, info.FullMethod)
	logger.DebugKV(ctx, "Call received")

	return handler(ctx, req)
}

// logStream logs every streaming call with its caller.
func logStream(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx := withCaller(stream.Context(), info.FullMethod)
	logger.DebugKV(ctx, "Stream opened")

	err := handler(srv, stream)

	logger.DebugKV(ctx, "Stream closed", "error", err)

	return err
}

// withCaller adds the method and the actor of the call to the context logger.
func withCaller(ctx context.Context, method string) context.Context {
	ctx = logger.WithKV(ctx, "method", method)

	if actor, ok := common.ActorFromIncoming(ctx); ok {
		ctx = logger.WithKV(ctx, "hostname", actor.Hostname, "username", actor.Username)
	}

	return ctx
}
