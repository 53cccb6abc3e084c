package grpcapi

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/LeonardoBeccarini/irrigation_audit/internal/crops"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/fao56"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/model/entities"
	"github.com/LeonardoBeccarini/irrigation_audit/internal/services/auditor"
)

const (
	ServiceName = "irrigation.AuditService"

	runAuditMethod  = "/" + ServiceName + "/RunAudit"
	pumpHoursMethod = "/" + ServiceName + "/PumpHours"
)

// PumpRequest asks how long to run a pump to deliver DepthMM over a field.
type PumpRequest struct {
	DepthMM float64             `json:"depth_mm"`
	Pump    entities.PumpConfig `json:"pump"`
}

type PumpResponse struct {
	Schedule       fao56.PumpSchedule `json:"schedule"`
	RuntimeMinutes int64              `json:"runtime_minutes"`
}

// AuditServer is the server side of irrigation.AuditService.
type AuditServer interface {
	RunAudit(context.Context, *auditor.AuditRequest) (*auditor.AuditReport, error)
	PumpHours(context.Context, *PumpRequest) (*PumpResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuditServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunAudit", Handler: runAuditHandler},
		{MethodName: "PumpHours", Handler: pumpHoursHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "irrigation/audit",
}

func Register(s grpc.ServiceRegistrar, srv AuditServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func runAuditHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(auditor.AuditRequest)
	if err := dec(in); err != nil {
		return nil, badRequest(err)
	}
	if interceptor == nil {
		return srv.(AuditServer).RunAudit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: runAuditMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuditServer).RunAudit(ctx, req.(*auditor.AuditRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func pumpHoursHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PumpRequest)
	if err := dec(in); err != nil {
		return nil, badRequest(err)
	}
	if interceptor == nil {
		return srv.(AuditServer).PumpHours(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: pumpHoursMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AuditServer).PumpHours(ctx, req.(*PumpRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Server exposes an auditor.Service over gRPC.
type Server struct {
	svc *auditor.Service
}

var _ AuditServer = (*Server)(nil)

func NewServer(svc *auditor.Service) *Server { return &Server{svc: svc} }

func (s *Server) RunAudit(ctx context.Context, req *auditor.AuditRequest) (*auditor.AuditReport, error) {
	if req.Field == nil && req.FieldID == "" {
		return nil, status.Error(codes.InvalidArgument, "field_id or field is required")
	}
	rep, err := s.svc.Audit(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rep, nil
}

func (s *Server) PumpHours(_ context.Context, req *PumpRequest) (*PumpResponse, error) {
	sched, err := fao56.SchedulePump(req.DepthMM, req.Pump)
	if err != nil {
		return nil, toStatus(err)
	}
	return &PumpResponse{Schedule: sched, RuntimeMinutes: int64(sched.Runtime().Minutes())}, nil
}

// badRequest reports an undecodable request as the caller's fault.
func badRequest(err error) error {
	return status.Error(codes.InvalidArgument, status.Convert(err).Message())
}

func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, auditor.ErrUnknownField), errors.Is(err, crops.ErrUnknownCrop):
		code = codes.NotFound
	case errors.Is(err, fao56.ErrOutOfCycle):
		code = codes.FailedPrecondition
	case errors.Is(err, auditor.ErrWeather):
		code = codes.Unavailable
	case errors.Is(err, fao56.ErrInvalidInput),
		errors.Is(err, fao56.ErrInvalidPumpConfig),
		errors.Is(err, fao56.ErrDiscontinuousAudit):
		code = codes.InvalidArgument
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
