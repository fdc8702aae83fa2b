package installer

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "forge.installer.v1.Installer"

// Method names of the service.
const (
	MethodDownloadAPI   = "DownloadAPI"
	MethodComposeUp     = "ComposeUp"
	MethodDownloadGame  = "DownloadGame"
	MethodLaunchGame    = "LaunchGame"
	MethodSetSecret     = "SetSecret"
	MethodGetSecret     = "GetSecret"
	MethodGetPaths      = "GetPaths"
	MethodCheckRuntime  = "CheckRuntime"
	MethodWatchProgress = "WatchProgress"
)

// FullMethod returns the path of method used on the wire.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// InstallerServer is the server API of the service.
//
//nolint:revive // Mirrors the naming of generated gRPC servers.
type InstallerServer interface {
	DownloadAPI(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ComposeUp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DownloadGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	LaunchGame(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetSecret(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSecret(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetPaths(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CheckRuntime(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	WatchProgress(req *structpb.Struct, stream grpc.ServerStream) error
}

// unaryCall dispatches a decoded request to one InstallerServer method.
type unaryCall func(srv InstallerServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc describes the service for grpc.Server registration and client streams.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InstallerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodDownloadAPI, InstallerServer.DownloadAPI),
		unary(MethodComposeUp, InstallerServer.ComposeUp),
		unary(MethodDownloadGame, InstallerServer.DownloadGame),
		unary(MethodLaunchGame, InstallerServer.LaunchGame),
		unary(MethodSetSecret, InstallerServer.SetSecret),
		unary(MethodGetSecret, InstallerServer.GetSecret),
		unary(MethodGetPaths, InstallerServer.GetPaths),
		unary(MethodCheckRuntime, InstallerServer.CheckRuntime),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatchProgress,
			Handler:       watchProgressHandler,
			ServerStreams: true,
		},
	},
}

// WatchProgressStreamDesc is the descriptor clients open progress streams with.
//
//nolint:gochecknoglobals // Derived from ServiceDesc.
var WatchProgressStreamDesc = &ServiceDesc.Streams[0]

// RegisterInstallerServer registers srv on s.
func RegisterInstallerServer(s grpc.ServiceRegistrar, srv InstallerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary builds the method descriptor of a unary call.
func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(structpb.Struct)
			if err := dec(req); err != nil {
				return nil, err
			}

			if interceptor == nil {
				return call(srv.(InstallerServer), ctx, req)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}

			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(InstallerServer), ctx, req.(*structpb.Struct))
			}

			return interceptor(ctx, req, info, handler)
		},
	}
}

func watchProgressHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}

	return srv.(InstallerServer).WatchProgress(req, stream)
}
