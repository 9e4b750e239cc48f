package server

import (
	"context"
	"errors"

	"github.com/PavelAgarkov/halt-pkg/registry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const controlServiceName = "haltpkg.v1.HaltControl"

// ControlService это управляющий gRPC-сервис поверх стандартных
// well-known типов, чтобы клиентам не требовался сгенерированный код.
type ControlService interface {
	GetState(ctx context.Context, name *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Apply(ctx context.Context, cmd *structpb.Struct) (*structpb.Struct, error)
	Snapshot(ctx context.Context, empty *emptypb.Empty) (*structpb.Struct, error)
}

type ControlServer struct {
	remotes registry.RemoteRegistry
}

var _ ControlService = (*ControlServer)(nil)

func NewControlServer(remotes registry.RemoteRegistry) *ControlServer {
	if remotes == nil {
		panic("server.NewControlServer: nil registry")
	}
	return &ControlServer{remotes: remotes}
}

func (s *ControlServer) GetState(ctx context.Context, name *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	remote, ok := s.remotes.Get(name.GetValue())
	if !ok {
		return nil, status.Errorf(codes.NotFound, "remote not found: %s", name.GetValue())
	}
	return wrapperspb.String(remote.State().String()), nil
}

// Apply выполняет команду вида {"op": "...", "name"|"group"|"all": ...}.
func (s *ControlServer) Apply(ctx context.Context, cmd *structpb.Struct) (*structpb.Struct, error) {
	fields := cmd.GetFields()
	op, err := registry.ParseOp(fields["op"].GetStringValue())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	switch {
	case fields["name"].GetStringValue() != "":
		name := fields["name"].GetStringValue()
		changed, err := s.remotes.Apply(op, name)
		if err != nil {
			return nil, applyStatus(err)
		}
		state := ""
		if remote, ok := s.remotes.Get(name); ok {
			state = remote.State().String()
		}
		n := 0
		if changed {
			n = 1
		}
		return controlResult(map[string]interface{}{"changed": n, "state": state})

	case fields["group"].GetStringValue() != "":
		changed, err := s.remotes.ApplyGroup(op, fields["group"].GetStringValue())
		if err != nil {
			return nil, applyStatus(err)
		}
		return controlResult(map[string]interface{}{"changed": changed})

	case fields["all"].GetBoolValue():
		return controlResult(map[string]interface{}{"changed": s.remotes.ApplyAll(op)})

	default:
		return nil, status.Error(codes.InvalidArgument, "one of name, group or all is required")
	}
}

func (s *ControlServer) Snapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap := s.remotes.Snapshot()
	states := make(map[string]interface{}, len(snap))
	for name, st := range snap {
		states[name] = st.String()
	}
	return controlResult(states)
}

func applyStatus(err error) error {
	if errors.Is(err, registry.ErrNotFound) {
		return status.Errorf(codes.NotFound, "%v", err)
	}
	return status.Errorf(codes.Internal, "%v", err)
}

func controlResult(m map[string]interface{}) (*structpb.Struct, error) {
	res, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return res, nil
}

// RegisterControlService регистрирует сервис на grpc.Server. Дескриптор
// собран вручную, Metadata указывает на логическое имя схемы.
func RegisterControlService(s *grpc.Server, srv ControlService) {
	s.RegisterService(&controlServiceDesc, srv)
}

var controlServiceDesc = grpc.ServiceDesc{
	ServiceName: controlServiceName,
	HandlerType: (*ControlService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: getStateHandler},
		{MethodName: "Apply", Handler: applyHandler},
		{MethodName: "Snapshot", Handler: snapshotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "haltpkg/v1/halt_control.proto",
}

func getStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlService).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + controlServiceName + "/GetState"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlService).GetState(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func applyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlService).Apply(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + controlServiceName + "/Apply"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlService).Apply(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func snapshotHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlService).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + controlServiceName + "/Snapshot"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlService).Snapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
