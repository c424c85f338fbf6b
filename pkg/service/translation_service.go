package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dasmlab/vakya/pkg/translate"
)

// TranslationService implements the vakya.v1.Translator gRPC service on top
// of a translate.Translator.
type TranslationService struct {
	// Translator runs the translations.
	Translator translate.Translator

	// Logger for service operations.
	Logger *logrus.Logger
}

var _ TranslatorServer = (*TranslationService)(nil)

// NewTranslationService creates a new TranslationService instance.
func NewTranslationService(translator translate.Translator, logger *logrus.Logger) *TranslationService {
	if logger == nil {
		logger = logrus.New()
	}

	return &TranslationService{
		Translator: translator,
		Logger:     logger,
	}
}

// Translate performs one translation.
func (s *TranslationService) Translate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	text := fields["text"].GetStringValue()
	rawMethod := string(translate.MethodAPI)
	if v, ok := fields["method"]; ok {
		rawMethod = v.GetStringValue()
	}

	s.Logger.WithFields(logrus.Fields{
		"method":      rawMethod,
		"text_length": len(text),
	}).Info("[gRPC] Translate request received")

	if text == "" {
		return nil, status.Error(codes.InvalidArgument, "text is required")
	}
	method, err := translate.ParseMethod(rawMethod)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, `invalid translation method, use "api", "local", or "modelv3"`)
	}
	if s.Translator == nil {
		return nil, status.Error(codes.Unavailable, "translator not configured")
	}

	result, err := s.Translator.Translate(ctx, text, method)
	if err != nil {
		s.Logger.WithError(err).WithField("method", method).Error("[gRPC] Translation failed")
		return nil, statusFromError(err)
	}

	resp, err := structpb.NewStruct(map[string]interface{}{
		"originalText":   text,
		"translatedText": result.TranslatedText,
		"method":         string(result.Method),
		"sourceLanguage": result.SourceLanguage,
		"targetLanguage": result.TargetLanguage,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("build response: %v", err))
	}
	return resp, nil
}

// ListMethods reports every method with its availability.
func (s *TranslationService) ListMethods(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.Translator == nil {
		return nil, status.Error(codes.Unavailable, "translator not configured")
	}

	methods := make([]interface{}, 0, len(translate.AllMethods))
	for _, info := range s.Translator.Methods() {
		methods = append(methods, map[string]interface{}{
			"value":       string(info.Value),
			"label":       info.Label,
			"description": info.Description,
			"available":   info.Available,
		})
	}

	resp, err := structpb.NewStruct(map[string]interface{}{
		"methods": methods,
		"supportedLanguages": map[string]interface{}{
			"source": translate.SourceLanguage,
			"target": translate.TargetLanguage,
		},
	})
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("build response: %v", err))
	}
	return resp, nil
}

// statusFromError maps translation errors onto gRPC status codes.
func statusFromError(err error) error {
	switch {
	case translate.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case translate.IsPrecondition(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case translate.IsTimeout(err):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, translate.ErrGeneratorUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
