// Package abonementv1 описывает gRPC-сервис абонементов.
//
// Сообщения передаются как google.protobuf.Struct, поля запросов и ответов в snake_case,
// как в JSON. ServiceDesc собран вручную в том же виде, что генерирует protoc-gen-go-grpc.
package abonementv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "dance_studio.abonement.v1.AbonementService"

// Имена методов.
const (
	MethodRegisterUser      = "RegisterUser"
	MethodQuoteGroupBooking = "QuoteGroupBooking"
	MethodActivateAbonement = "ActivateAbonement"
	MethodConfirmPayment    = "ConfirmPayment"
	MethodMarkAttendance    = "MarkAttendance"
	MethodApplySickLeave    = "ApplySickLeave"
	MethodExtendAbonement   = "ExtendAbonement"
	MethodGetRoster         = "GetRoster"
	MethodListActionLog     = "ListActionLog"
	MethodGetSetting        = "GetSetting"
	MethodUpdateSetting     = "UpdateSetting"
	MethodExpireAbonements  = "ExpireAbonements"
)

// FullMethod: "/<service>/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type AbonementServiceServer interface {
	RegisterUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QuoteGroupBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ActivateAbonement(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmPayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkAttendance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplySickLeave(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExtendAbonement(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRoster(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListActionLog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSetting(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateSetting(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExpireAbonements(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedAbonementServiceServer встраивается в реализацию,
// чтобы новые методы не ломали сборку.
type UnimplementedAbonementServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedAbonementServiceServer) RegisterUser(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodRegisterUser)
}
func (UnimplementedAbonementServiceServer) QuoteGroupBooking(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodQuoteGroupBooking)
}
func (UnimplementedAbonementServiceServer) ActivateAbonement(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodActivateAbonement)
}
func (UnimplementedAbonementServiceServer) ConfirmPayment(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodConfirmPayment)
}
func (UnimplementedAbonementServiceServer) MarkAttendance(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodMarkAttendance)
}
func (UnimplementedAbonementServiceServer) ApplySickLeave(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodApplySickLeave)
}
func (UnimplementedAbonementServiceServer) ExtendAbonement(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodExtendAbonement)
}
func (UnimplementedAbonementServiceServer) GetRoster(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetRoster)
}
func (UnimplementedAbonementServiceServer) ListActionLog(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodListActionLog)
}
func (UnimplementedAbonementServiceServer) GetSetting(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodGetSetting)
}
func (UnimplementedAbonementServiceServer) UpdateSetting(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodUpdateSetting)
}
func (UnimplementedAbonementServiceServer) ExpireAbonements(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodExpireAbonements)
}

func RegisterAbonementServiceServer(s grpc.ServiceRegistrar, srv AbonementServiceServer) {
	s.RegisterService(&AbonementService_ServiceDesc, srv)
}

type call func(AbonementServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unary строит обработчик метода так же, как сгенерированный код.
func unary(method string, fn call) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(AbonementServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(srv.(AbonementServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var AbonementService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AbonementServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRegisterUser, AbonementServiceServer.RegisterUser),
		unary(MethodQuoteGroupBooking, AbonementServiceServer.QuoteGroupBooking),
		unary(MethodActivateAbonement, AbonementServiceServer.ActivateAbonement),
		unary(MethodConfirmPayment, AbonementServiceServer.ConfirmPayment),
		unary(MethodMarkAttendance, AbonementServiceServer.MarkAttendance),
		unary(MethodApplySickLeave, AbonementServiceServer.ApplySickLeave),
		unary(MethodExtendAbonement, AbonementServiceServer.ExtendAbonement),
		unary(MethodGetRoster, AbonementServiceServer.GetRoster),
		unary(MethodListActionLog, AbonementServiceServer.ListActionLog),
		unary(MethodGetSetting, AbonementServiceServer.GetSetting),
		unary(MethodUpdateSetting, AbonementServiceServer.UpdateSetting),
		unary(MethodExpireAbonements, AbonementServiceServer.ExpireAbonements),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "abonement/v1/abonement.proto",
}
