package service

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// translatorFileName is the descriptor path reflection clients resolve the
// Translator service from.
const translatorFileName = "vakya/v1/translator.proto"

func init() {
	if err := registerTranslatorFile(protoregistry.GlobalFiles); err != nil {
		panic(err)
	}
}

// translatorFile describes vakya.v1.Translator in terms of the well-known
// types it carries.
func translatorFile() *descriptorpb.FileDescriptorProto {
	structFile := structpb.File_google_protobuf_struct_proto.Path()
	emptyFile := emptypb.File_google_protobuf_empty_proto.Path()

	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(translatorFileName),
		Package:    proto.String("vakya.v1"),
		Dependency: []string{structFile, emptyFile},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("Translator"),
			Method: []*descriptorpb.MethodDescriptorProto{
				{
					Name:       proto.String("Translate"),
					InputType:  proto.String(".google.protobuf.Struct"),
					OutputType: proto.String(".google.protobuf.Struct"),
				},
				{
					Name:       proto.String("ListMethods"),
					InputType:  proto.String(".google.protobuf.Empty"),
					OutputType: proto.String(".google.protobuf.Struct"),
				},
			},
		}},
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/dasmlab/vakya/pkg/service"),
		},
	}
}

func registerTranslatorFile(files *protoregistry.Files) error {
	if _, err := files.FindFileByPath(translatorFileName); err == nil {
		return nil
	}
	fd, err := protodesc.NewFile(translatorFile(), files)
	if err != nil {
		return fmt.Errorf("build %s descriptor: %w", translatorFileName, err)
	}
	if err := files.RegisterFile(fd); err != nil {
		return fmt.Errorf("register %s descriptor: %w", translatorFileName, err)
	}
	return nil
}

// TranslatorServiceDescriptor returns the registered descriptor of the
// Translator service.
func TranslatorServiceDescriptor() (protoreflect.ServiceDescriptor, error) {
	d, err := protoregistry.GlobalFiles.FindDescriptorByName(TranslatorServiceName)
	if err != nil {
		return nil, err
	}
	sd, ok := d.(protoreflect.ServiceDescriptor)
	if !ok {
		return nil, fmt.Errorf("%s is a %T, not a service", TranslatorServiceName, d)
	}
	return sd, nil
}
