package remote

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// WatchMethod is the server-streaming RPC carrying default-voice pushes.
// Requests and responses are google.protobuf.Struct messages.
const WatchMethod = "/baserah.voice.v1.DefaultVoice/Watch"

var watchStreamDesc = grpc.StreamDesc{
	StreamName:    "Watch",
	ServerStreams: true,
}

func (s *Subscriber) streamGRPC(ctx context.Context, connected func(), deliver func([]byte)) error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, s.grpcDialOptions...)

	conn, err := grpc.NewClient(s.target, opts...)
	if err != nil {
		return fmt.Errorf("dial remote grpc %q: %w", s.target, err)
	}
	defer func() { _ = conn.Close() }()

	readyCtx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	conn.Connect()
	err = waitForReady(readyCtx, conn)
	cancel()
	if err != nil {
		return fmt.Errorf("wait for remote grpc readiness: %w", err)
	}

	stream, err := conn.NewStream(ctx, &watchStreamDesc, WatchMethod)
	if err != nil {
		return fmt.Errorf("open remote watch stream: %w", err)
	}
	if err := stream.SendMsg(&structpb.Struct{}); err != nil {
		return fmt.Errorf("send remote watch request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("close remote watch send: %w", err)
	}
	connected()

	for {
		msg := &structpb.Struct{}
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return errStreamClosed
			}
			return fmt.Errorf("receive remote watch: %w", err)
		}
		raw, err := protojson.Marshal(msg)
		if err != nil {
			s.logger.Warn("remote payload rejected", "transport", s.transport, "error", err.Error())
			continue
		}
		deliver(raw)
	}
}

// waitForReady blocks until the connection is Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}
