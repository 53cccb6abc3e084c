package grpcapi

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/services/auditor"
)

// Client calls irrigation.AuditService with the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Dial opens an insecure connection to addr that speaks the JSON codec.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

func (c *Client) RunAudit(ctx context.Context, req auditor.AuditRequest, opts ...grpc.CallOption) (auditor.AuditReport, error) {
	var out auditor.AuditReport
	err := c.cc.Invoke(ctx, runAuditMethod, &req, &out, c.callOptions(opts)...)
	return out, err
}

func (c *Client) PumpHours(ctx context.Context, req PumpRequest, opts ...grpc.CallOption) (PumpResponse, error) {
	var out PumpResponse
	err := c.cc.Invoke(ctx, pumpHoursMethod, &req, &out, c.callOptions(opts)...)
	return out, err
}

func (c *Client) callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
