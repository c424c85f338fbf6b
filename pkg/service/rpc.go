package service

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dasmlab/vakya/pkg/translate"
)

// The Translator service carries protobuf well-known types, so it needs no
// generated code. Field names match the HTTP JSON payloads.
const (
	TranslatorServiceName = "vakya.v1.Translator"

	translateFullMethod   = "/" + TranslatorServiceName + "/Translate"
	listMethodsFullMethod = "/" + TranslatorServiceName + "/ListMethods"
)

// TranslatorServer is the server API for the vakya.v1.Translator service.
type TranslatorServer interface {
	// Translate takes {text, method} and returns a translation result.
	Translate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ListMethods returns {methods: [{value, label, description, available}]}.
	ListMethods(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterTranslatorServer registers srv on s.
func RegisterTranslatorServer(s grpc.ServiceRegistrar, srv TranslatorServer) {
	s.RegisterService(&translatorServiceDesc, srv)
}

var translatorServiceDesc = grpc.ServiceDesc{
	ServiceName: TranslatorServiceName,
	HandlerType: (*TranslatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Translate", Handler: translateHandler},
		{MethodName: "ListMethods", Handler: listMethodsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: translatorFileName,
}

func translateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranslatorServer).Translate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: translateFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TranslatorServer).Translate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listMethodsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranslatorServer).ListMethods(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listMethodsFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TranslatorServer).ListMethods(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the vakya.v1.Translator service.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Translate translates text remotely.
func (c *Client) Translate(ctx context.Context, text string, method translate.Method) (*translate.Result, error) {
	in, err := structpb.NewStruct(map[string]interface{}{
		"text":   text,
		"method": string(method),
	})
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, translateFullMethod, in, out); err != nil {
		return nil, err
	}

	fields := out.GetFields()
	return &translate.Result{
		TranslatedText: fields["translatedText"].GetStringValue(),
		Method:         translate.Method(fields["method"].GetStringValue()),
		SourceLanguage: fields["sourceLanguage"].GetStringValue(),
		TargetLanguage: fields["targetLanguage"].GetStringValue(),
	}, nil
}

// ListMethods fetches the remote method list.
func (c *Client) ListMethods(ctx context.Context) ([]translate.MethodInfo, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, listMethodsFullMethod, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}

	var infos []translate.MethodInfo
	for _, v := range out.GetFields()["methods"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		infos = append(infos, translate.MethodInfo{
			Value:       translate.Method(f["value"].GetStringValue()),
			Label:       f["label"].GetStringValue(),
			Description: f["description"].GetStringValue(),
			Available:   f["available"].GetBoolValue(),
		})
	}
	return infos, nil
}
