package server

import (
	"context"
	"errors"
	"strings"

	"agility-scorer/internal/constants"
	"agility-scorer/internal/domain"
	"agility-scorer/internal/rpc"
	"agility-scorer/internal/session"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

// RelayServer exposes a session.Remote to devices over connect.
type RelayServer struct {
	remote session.Remote
	logger zerolog.Logger
}

func NewRelayServer(remote session.Remote, logger zerolog.Logger) *RelayServer {
	return &RelayServer{remote: remote, logger: logger}
}

var errMissingCode = errors.New("session code is required")

func (s *RelayServer) CreateSession(ctx context.Context, req *connect.Request[rpc.CreateSessionRequest]) (*connect.Response[rpc.CreateSessionResponse], error) {
	rec := req.Msg.Record
	if err := validateRecord(rec); err != nil {
		return nil, err
	}
	if err := s.remote.Create(ctx, rec); err != nil {
		s.log(ctx).Warn().Err(err).Str("code", rec.Code).Msg("create session failed")
		return nil, rpc.ToConnectError(err)
	}
	s.log(ctx).Info().Str("code", rec.Code).Str("device_id", rec.DeviceID).Msg("session created")
	return connect.NewResponse(&rpc.CreateSessionResponse{}), nil
}

func (s *RelayServer) GetSession(ctx context.Context, req *connect.Request[rpc.GetSessionRequest]) (*connect.Response[rpc.GetSessionResponse], error) {
	code := strings.TrimSpace(req.Msg.Code)
	if code == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingCode)
	}
	rec, err := s.remote.Fetch(ctx, code)
	if err != nil {
		return nil, rpc.ToConnectError(err)
	}
	return connect.NewResponse(&rpc.GetSessionResponse{Record: rec}), nil
}

func (s *RelayServer) PushState(ctx context.Context, req *connect.Request[rpc.PushStateRequest]) (*connect.Response[rpc.PushStateResponse], error) {
	rec := req.Msg.Record
	if err := validateRecord(rec); err != nil {
		return nil, err
	}
	if err := s.remote.Push(ctx, rec); err != nil {
		s.log(ctx).Warn().Err(err).Str("code", rec.Code).Msg("push failed")
		return nil, rpc.ToConnectError(err)
	}
	s.log(ctx).Debug().
		Str("code", rec.Code).
		Str("device_id", rec.DeviceID).
		Int("competitors", len(rec.State.Competitors)).
		Msg("state pushed")
	return connect.NewResponse(&rpc.PushStateResponse{}), nil
}

// WatchSession sends the current record, then the latest record after each
// write. A slow reader skips intermediate writes.
func (s *RelayServer) WatchSession(ctx context.Context, req *connect.Request[rpc.WatchSessionRequest], stream *connect.ServerStream[rpc.WatchSessionResponse]) error {
	code := strings.TrimSpace(req.Msg.Code)
	if code == "" {
		return connect.NewError(connect.CodeInvalidArgument, errMissingCode)
	}

	latest := make(chan domain.SessionRecord, constants.WatchBuffer)
	sub, err := s.remote.Subscribe(ctx, code, func(rec domain.SessionRecord) {
		for {
			select {
			case latest <- rec:
				return
			default:
			}
			select {
			case <-latest:
			default:
			}
		}
	})
	if err != nil {
		return rpc.ToConnectError(err)
	}
	defer sub.Close()

	current, err := s.remote.Fetch(ctx, code)
	if err != nil {
		return rpc.ToConnectError(err)
	}
	if err := stream.Send(&rpc.WatchSessionResponse{Record: current}); err != nil {
		return err
	}
	s.log(ctx).Info().Str("code", code).Msg("watcher attached")

	for {
		select {
		case <-ctx.Done():
			s.log(ctx).Info().Str("code", code).Msg("watcher detached")
			return nil
		case rec := <-latest:
			if err := stream.Send(&rpc.WatchSessionResponse{Record: rec}); err != nil {
				return err
			}
		}
	}
}

func (s *RelayServer) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.logger
}

func validateRecord(rec domain.SessionRecord) error {
	if strings.TrimSpace(rec.Code) == "" {
		return connect.NewError(connect.CodeInvalidArgument, errMissingCode)
	}
	if rec.DeviceID == "" {
		return connect.NewError(connect.CodeInvalidArgument, errors.New("device id is required"))
	}
	return nil
}
