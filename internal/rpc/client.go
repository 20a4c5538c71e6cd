package rpc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"agility-scorer/internal/domain"
	"agility-scorer/internal/session"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

// RelayClient is a session.Remote backed by the relay server.
type RelayClient struct {
	create *connect.Client[CreateSessionRequest, CreateSessionResponse]
	get    *connect.Client[GetSessionRequest, GetSessionResponse]
	push   *connect.Client[PushStateRequest, PushStateResponse]
	watch  *connect.Client[WatchSessionRequest, WatchSessionResponse]
	logger zerolog.Logger
}

func NewRelayClient(httpClient connect.HTTPClient, baseURL string, logger zerolog.Logger) *RelayClient {
	baseURL = strings.TrimRight(baseURL, "/")
	codec := connect.WithCodec(Codec{})
	return &RelayClient{
		create: connect.NewClient[CreateSessionRequest, CreateSessionResponse](httpClient, baseURL+CreateSessionProcedure, codec),
		get:    connect.NewClient[GetSessionRequest, GetSessionResponse](httpClient, baseURL+GetSessionProcedure, codec),
		push:   connect.NewClient[PushStateRequest, PushStateResponse](httpClient, baseURL+PushStateProcedure, codec),
		watch:  connect.NewClient[WatchSessionRequest, WatchSessionResponse](httpClient, baseURL+WatchSessionProcedure, codec),
		logger: logger,
	}
}

func (c *RelayClient) Create(ctx context.Context, rec domain.SessionRecord) error {
	_, err := c.create.CallUnary(ctx, connect.NewRequest(&CreateSessionRequest{Record: rec}))
	return FromConnectError(err)
}

func (c *RelayClient) Fetch(ctx context.Context, code string) (domain.SessionRecord, error) {
	resp, err := c.get.CallUnary(ctx, connect.NewRequest(&GetSessionRequest{Code: code}))
	if err != nil {
		return domain.SessionRecord{}, FromConnectError(err)
	}
	return resp.Msg.Record, nil
}

func (c *RelayClient) Push(ctx context.Context, rec domain.SessionRecord) error {
	_, err := c.push.CallUnary(ctx, connect.NewRequest(&PushStateRequest{Record: rec}))
	return FromConnectError(err)
}

// Subscribe opens the watch stream and waits for the current record, which
// only confirms the subscription; later records go to h.
func (c *RelayClient) Subscribe(ctx context.Context, code string, h session.Handler) (session.Subscription, error) {
	streamCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)

	stream, err := c.watch.CallServerStream(streamCtx, connect.NewRequest(&WatchSessionRequest{Code: code}))
	if err != nil {
		stop()
		cancel()
		return nil, FromConnectError(err)
	}
	if !stream.Receive() {
		err := stream.Err()
		stop()
		cancel()
		_ = stream.Close()
		if err == nil {
			err = fmt.Errorf("%w: %s", domain.ErrSessionNotFound, code)
		}
		return nil, FromConnectError(err)
	}
	stop()

	w := &watcher{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		defer stream.Close()
		for stream.Receive() {
			h(stream.Msg().Record)
		}
		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			c.logger.Warn().Err(err).Str("code", code).Msg("relay watch ended")
		}
	}()
	return w, nil
}

type watcher struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (w *watcher) Close() error {
	w.once.Do(func() {
		w.cancel()
		<-w.done
	})
	return nil
}
