//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"google.golang.org/grpc/metadata"
)

// Metadata keys carrying the actor of a call.
const (
	HostnameMetadataKey = "x-forge-hostname"
	UsernameMetadataKey = "x-forge-username"
)

// Actor identifies who issued a call.
type Actor struct {
	Hostname string
	Username string
}

// DetectActor gathers host and user information for audit trail.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// AppendToOutgoing attaches the actor to the outgoing gRPC metadata of ctx.
func (a *Actor) AppendToOutgoing(ctx context.Context) context.Context {
	if a == nil {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx,
		HostnameMetadataKey, a.Hostname,
		UsernameMetadataKey, a.Username)
}

// ActorFromIncoming reads the actor attached by a client, if any.
func ActorFromIncoming(ctx context.Context) (*Actor, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, false
	}

	hostnames := md.Get(HostnameMetadataKey)
	usernames := md.Get(UsernameMetadataKey)

	if len(hostnames) == 0 && len(usernames) == 0 {
		return nil, false
	}

	actor := new(Actor)
	if len(hostnames) > 0 {
		actor.Hostname = hostnames[0]
	}

	if len(usernames) > 0 {
		actor.Username = usernames[0]
	}

	return actor, true
}
