package rpc

import (
	"context"
	"errors"
	"net/http"

	"agility-scorer/internal/domain"

	"connectrpc.com/connect"
)

const SessionServiceName = "agility.v1.SessionService"

const (
	SessionServicePath     = "/" + SessionServiceName + "/"
	CreateSessionProcedure = SessionServicePath + "CreateSession"
	GetSessionProcedure    = SessionServicePath + "GetSession"
	PushStateProcedure     = SessionServicePath + "PushState"
	WatchSessionProcedure  = SessionServicePath + "WatchSession"
)

type CreateSessionRequest struct {
	Record domain.SessionRecord `json:"record"`
}

type CreateSessionResponse struct{}

type GetSessionRequest struct {
	Code string `json:"code"`
}

type GetSessionResponse struct {
	Record domain.SessionRecord `json:"record"`
}

type PushStateRequest struct {
	Record domain.SessionRecord `json:"record"`
}

type PushStateResponse struct{}

type WatchSessionRequest struct {
	Code string `json:"code"`
}

type WatchSessionResponse struct {
	Record domain.SessionRecord `json:"record"`
}

type SessionServiceHandler interface {
	CreateSession(context.Context, *connect.Request[CreateSessionRequest]) (*connect.Response[CreateSessionResponse], error)
	GetSession(context.Context, *connect.Request[GetSessionRequest]) (*connect.Response[GetSessionResponse], error)
	PushState(context.Context, *connect.Request[PushStateRequest]) (*connect.Response[PushStateResponse], error)
	// WatchSession streams the current record first, then every later write.
	WatchSession(context.Context, *connect.Request[WatchSessionRequest], *connect.ServerStream[WatchSessionResponse]) error
}

// NewSessionServiceHandler mounts svc and returns the path prefix to route.
func NewSessionServiceHandler(svc SessionServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(CreateSessionProcedure, connect.NewUnaryHandler(CreateSessionProcedure, svc.CreateSession, opts...))
	mux.Handle(GetSessionProcedure, connect.NewUnaryHandler(GetSessionProcedure, svc.GetSession, opts...))
	mux.Handle(PushStateProcedure, connect.NewUnaryHandler(PushStateProcedure, svc.PushState, opts...))
	mux.Handle(WatchSessionProcedure, connect.NewServerStreamHandler(WatchSessionProcedure, svc.WatchSession, opts...))
	return SessionServicePath, mux
}

// ToConnectError maps domain sentinels onto connect codes.
func ToConnectError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrSessionNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, domain.ErrSessionExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// FromConnectError is the client side inverse of ToConnectError.
func FromConnectError(err error) error {
	if err == nil {
		return nil
	}
	switch connect.CodeOf(err) {
	case connect.CodeNotFound:
		return errors.Join(domain.ErrSessionNotFound, err)
	case connect.CodeAlreadyExists:
		return errors.Join(domain.ErrSessionExists, err)
	}
	return err
}
