package service

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dasmlab/vakya/pkg/translate"
)

func startTestServer(t *testing.T, tr translate.Translator) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterTranslatorServer(s, NewTranslationService(tr, quietLogger()))
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewClient(conn)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGRPCTranslate(t *testing.T) {
	client := startTestServer(t, &fakeTranslator{})

	res, err := client.Translate(testContext(t), "hello", translate.MethodLocal)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.TranslatedText != "HELLO" {
		t.Errorf("TranslatedText = %q", res.TranslatedText)
	}
	if res.Method != translate.MethodLocal {
		t.Errorf("Method = %q", res.Method)
	}
	if res.SourceLanguage != "English" || res.TargetLanguage != "Sanskrit" {
		t.Errorf("languages = %s -> %s", res.SourceLanguage, res.TargetLanguage)
	}
}

func TestGRPCTranslateErrors(t *testing.T) {
	tests := []struct {
		name   string
		tr     *fakeTranslator
		text   string
		method translate.Method
		want   codes.Code
	}{
		{"empty text", &fakeTranslator{}, "", translate.MethodAPI, codes.InvalidArgument},
		{"bad method", &fakeTranslator{}, "hello", "modelv9", codes.InvalidArgument},
		{"model missing", &fakeTranslator{err: translate.ErrModelUnavailable}, "hello", translate.MethodLocal, codes.FailedPrecondition},
		{"no generator", &fakeTranslator{err: translate.ErrGeneratorUnavailable}, "hello", translate.MethodAPI, codes.Unavailable},
		{
			"timeout",
			&fakeTranslator{err: &translate.AbortedError{Engine: "mbart", Err: context.DeadlineExceeded}},
			"hello", translate.MethodLocal, codes.DeadlineExceeded,
		},
		{"process failure", &fakeTranslator{failOn: "hello"}, "hello", translate.MethodLocal, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := startTestServer(t, tt.tr)

			_, err := client.Translate(testContext(t), tt.text, tt.method)
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %s, want %s (err = %v)", got, tt.want, err)
			}
		})
	}
}

func TestGRPCListMethods(t *testing.T) {
	client := startTestServer(t, &fakeTranslator{
		available: map[translate.Method]bool{translate.MethodAPI: true},
	})

	methods, err := client.ListMethods(testContext(t))
	if err != nil {
		t.Fatalf("ListMethods: %v", err)
	}
	if len(methods) != len(translate.AllMethods) {
		t.Fatalf("got %d methods, want %d", len(methods), len(translate.AllMethods))
	}
	for i, m := range methods {
		if m.Value != translate.AllMethods[i] {
			t.Errorf("methods[%d] = %s", i, m.Value)
		}
		if m.Available != (m.Value == translate.MethodAPI) {
			t.Errorf("%s available = %v", m.Value, m.Available)
		}
		if m.Label == "" {
			t.Errorf("%s has no label", m.Value)
		}
	}
}

func TestTranslationServiceMethodField(t *testing.T) {
	svc := NewTranslationService(&fakeTranslator{}, quietLogger())

	absent, err := structpb.NewStruct(map[string]interface{}{"text": "hello"})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := svc.Translate(context.Background(), absent)
	if err != nil {
		t.Fatalf("absent method: %v", err)
	}
	if got := resp.GetFields()["method"].GetStringValue(); got != "api" {
		t.Errorf("absent method resolved to %q, want api", got)
	}

	for _, raw := range []interface{}{"", nil, " local "} {
		req, err := structpb.NewStruct(map[string]interface{}{"text": "hello", "method": raw})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Translate(context.Background(), req); status.Code(err) != codes.InvalidArgument {
			t.Errorf("method %#v: code = %s, want InvalidArgument", raw, status.Code(err))
		}
	}
}

func TestTranslationServiceNilRequest(t *testing.T) {
	svc := NewTranslationService(&fakeTranslator{}, quietLogger())

	_, err := svc.Translate(context.Background(), (*structpb.Struct)(nil))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %s, want InvalidArgument", status.Code(err))
	}
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{translate.ErrEmptyText, codes.InvalidArgument},
		{translate.ErrModelNotFound, codes.FailedPrecondition},
		{&translate.AbortedError{Engine: "x", Err: context.Canceled}, codes.Canceled},
		{&translate.SpawnError{Err: errors.New("exec: not found")}, codes.Internal},
		{&translate.ModelError{Output: "Model Error: oom"}, codes.Internal},
	}
	for _, tt := range tests {
		if got := status.Code(statusFromError(tt.err)); got != tt.want {
			t.Errorf("statusFromError(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestTranslatorServiceDescriptor(t *testing.T) {
	sd, err := TranslatorServiceDescriptor()
	if err != nil {
		t.Fatalf("TranslatorServiceDescriptor: %v", err)
	}
	if sd.ParentFile().Path() != translatorServiceDesc.Metadata {
		t.Errorf("file = %s, want %v", sd.ParentFile().Path(), translatorServiceDesc.Metadata)
	}

	methods := sd.Methods()
	if methods.Len() != len(translatorServiceDesc.Methods) {
		t.Fatalf("descriptor has %d methods, service desc has %d", methods.Len(), len(translatorServiceDesc.Methods))
	}
	for _, m := range translatorServiceDesc.Methods {
		md := methods.ByName(protoreflect.Name(m.MethodName))
		if md == nil {
			t.Errorf("descriptor is missing %s", m.MethodName)
			continue
		}
		if md.Output().FullName() != "google.protobuf.Struct" {
			t.Errorf("%s output = %s", m.MethodName, md.Output().FullName())
		}
	}
}

func TestReflectionDescribesTranslator(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterTranslatorServer(s, NewTranslationService(&fakeTranslator{}, quietLogger()))
	reflection.Register(s)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	stream, err := grpc_reflection_v1.NewServerReflectionClient(conn).ServerReflectionInfo(testContext(t))
	if err != nil {
		t.Fatalf("ServerReflectionInfo: %v", err)
	}
	err = stream.Send(&grpc_reflection_v1.ServerReflectionRequest{
		MessageRequest: &grpc_reflection_v1.ServerReflectionRequest_FileContainingSymbol{
			FileContainingSymbol: TranslatorServiceName,
		},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	resp, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if e := resp.GetErrorResponse(); e != nil {
		t.Fatalf("reflection error: %s", e.GetErrorMessage())
	}

	var found bool
	for _, raw := range resp.GetFileDescriptorResponse().GetFileDescriptorProto() {
		fdp := new(descriptorpb.FileDescriptorProto)
		if err := proto.Unmarshal(raw, fdp); err != nil {
			t.Fatalf("unmarshal descriptor: %v", err)
		}
		if fdp.GetName() != translatorFileName {
			continue
		}
		for _, svc := range fdp.GetService() {
			if svc.GetName() == "Translator" && len(svc.GetMethod()) == 2 {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("reflection did not return %s with the Translator service", translatorFileName)
	}
}
