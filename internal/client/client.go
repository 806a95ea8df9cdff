package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/matheus3301/mailcount/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client talks to an account daemon over its Unix socket.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// Status reports the daemon's account, lifecycle state and uptime.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.MethodStatus, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// ListCounters returns every saved unread counter.
func (c *Client) ListCounters(ctx context.Context) (map[string]any, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, api.MethodListCounters, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// SeedCounters creates zero counters for locations that lack one. An empty
// list means every location.
func (c *Client) SeedCounters(ctx context.Context, locations []string) (map[string]any, error) {
	return c.call(ctx, api.MethodSeedCounters, map[string]any{"locations": toList(locations)})
}

// RebuildCounters recomputes counters from the message cache.
func (c *Client) RebuildCounters(ctx context.Context, locations []string) (map[string]any, error) {
	return c.call(ctx, api.MethodRebuildCounters, map[string]any{"locations": toList(locations)})
}

// Reconcile runs a counter reconciliation directly.
func (c *Client) Reconcile(ctx context.Context, source string, ids []string) (map[string]any, error) {
	return c.call(ctx, api.MethodReconcile, map[string]any{"source": source, "message_ids": toList(ids)})
}

// SubmitBatch queues a bulk action. destination is only used by "move".
func (c *Client) SubmitBatch(ctx context.Context, action, source, destination string, ids []string) (string, error) {
	out, err := c.call(ctx, api.MethodSubmitBatch, map[string]any{
		"action":      action,
		"source":      source,
		"destination": destination,
		"message_ids": toList(ids),
	})
	if err != nil {
		return "", err
	}
	id, _ := out["job_id"].(string)
	return id, nil
}

// CancelJob cancels a queued or running batch.
func (c *Client) CancelJob(ctx context.Context, id string) (map[string]any, error) {
	return c.call(ctx, api.MethodCancelJob, map[string]any{"job_id": id})
}

// JobStatus reports a batch's state.
func (c *Client) JobStatus(ctx context.Context, id string) (map[string]any, error) {
	return c.call(ctx, api.MethodJobStatus, map[string]any{"job_id": id})
}

// ImportContacts sends one raw contacts listing page.
func (c *Client) ImportContacts(ctx context.Context, payload []byte) (map[string]any, error) {
	return c.call(ctx, api.MethodImportContacts, map[string]any{"payload": string(payload)})
}

// ListContacts pages through cached contacts.
func (c *Client) ListContacts(ctx context.Context, limit, offset int) (map[string]any, error) {
	return c.call(ctx, api.MethodListContacts, map[string]any{"limit": limit, "offset": offset})
}

// GetContact fetches one cached contact.
func (c *Client) GetContact(ctx context.Context, id string) (map[string]any, error) {
	return c.call(ctx, api.MethodGetContact, map[string]any{"id": id})
}

// ImportMessages sends one raw messages page.
func (c *Client) ImportMessages(ctx context.Context, payload []byte) (map[string]any, error) {
	return c.call(ctx, api.MethodImportMessages, map[string]any{"payload": string(payload)})
}

// ListMessages returns the newest cached messages in a location.
func (c *Client) ListMessages(ctx context.Context, location string, limit int) (map[string]any, error) {
	return c.call(ctx, api.MethodListMessages, map[string]any{"location": location, "limit": limit})
}

// WatchCounters calls fn with each counter update until ctx is done or fn
// returns an error.
func (c *Client) WatchCounters(ctx context.Context, fn func(map[string]any) error) error {
	stream, err := c.conn.NewStream(ctx, &api.WatchCountersStreamDesc, api.MethodWatchCounters)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(msg.AsMap()); err != nil {
			return err
		}
	}
}

func toList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
