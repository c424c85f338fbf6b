package translate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultLocalModelDir holds the mBART model served by MethodLocal.
	DefaultLocalModelDir = "modelv2"
	// DefaultModelV3Dir holds the IndicTrans2 model served by MethodModelV3.
	DefaultModelV3Dir = "modelv3"
)

// ServiceConfig holds configuration for creating a Service.
type ServiceConfig struct {
	// Runner executes local model programs. Required for local methods.
	Runner *Runner
	// Generator backs MethodAPI. If nil, MethodAPI fails with ErrGeneratorUnavailable.
	Generator Generator
	// LocalModelDir defaults to DefaultLocalModelDir.
	LocalModelDir string
	// ModelV3Dir defaults to DefaultModelV3Dir.
	ModelV3Dir string
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// Service chooses a backend per request and runs it.
type Service struct {
	runner    *Runner
	generator Generator
	modelDirs map[Method]string
	logger    *logrus.Logger
}

// NewService creates a Service. Model directories are resolved to absolute
// paths once so child processes do not depend on their working directory.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.LocalModelDir == "" {
		cfg.LocalModelDir = DefaultLocalModelDir
	}
	if cfg.ModelV3Dir == "" {
		cfg.ModelV3Dir = DefaultModelV3Dir
	}
	if cfg.Runner == nil {
		cfg.Runner = NewRunner(RunnerConfig{Logger: cfg.Logger})
	}

	return &Service{
		runner:    cfg.Runner,
		generator: cfg.Generator,
		modelDirs: map[Method]string{
			MethodLocal:   absPath(cfg.LocalModelDir),
			MethodModelV3: absPath(cfg.ModelV3Dir),
		},
		logger: cfg.Logger,
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Translate translates text with the given method.
func (s *Service) Translate(ctx context.Context, text string, method Method) (*Result, error) {
	startTime := time.Now()
	result, err := s.translate(ctx, text, method)
	recordTranslation(method, time.Since(startTime), err, len(text))

	fields := logrus.Fields{
		"method":      method,
		"text_length": len(text),
		"duration_ms": time.Since(startTime).Milliseconds(),
	}
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Warn("Translation failed")
		return nil, err
	}
	s.logger.WithFields(fields).Info("Translation completed successfully")
	return result, nil
}

func (s *Service) translate(ctx context.Context, text string, method Method) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	switch method {
	case MethodAPI:
		return s.translateWithAPI(ctx, text)
	case MethodLocal:
		return s.translateLocally(ctx, text, MBartEngine)
	case MethodModelV3:
		return s.translateLocally(ctx, text, IndicTransEngine)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, string(method))
	}
}

func (s *Service) translateLocally(ctx context.Context, text string, engine Engine) (*Result, error) {
	modelDir := s.modelDirs[engine.Method]
	if !s.Available(engine.Method) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrModelUnavailable, engine.Method, modelDir)
	}

	inv, err := BuildInvocation(text, modelDir, engine)
	if err != nil {
		return nil, err
	}
	return s.runner.Run(ctx, inv)
}

func (s *Service) translateWithAPI(ctx context.Context, text string) (*Result, error) {
	if s.generator == nil {
		return nil, ErrGeneratorUnavailable
	}

	prompt := fmt.Sprintf("Translate the following English text to Sanskrit: \"%s\"", text)
	translated, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("API translation failed: %w", err)
	}
	return newResult(translated, MethodAPI), nil
}

// CheckModelAvailability reports whether the modelv2 files are installed.
func (s *Service) CheckModelAvailability() bool {
	return s.Available(MethodLocal)
}

// CheckModelV3Availability reports whether the modelv3 files are installed.
func (s *Service) CheckModelV3Availability() bool {
	return s.Available(MethodModelV3)
}

// Available reports whether method can serve requests right now. Local
// methods are checked on the filesystem every call; errors count as absent.
func (s *Service) Available(method Method) bool {
	switch method {
	case MethodAPI:
		return s.generator != nil
	case MethodLocal:
		return modelInstalled(s.modelDirs[MethodLocal], MBartEngine.RequiredFiles)
	case MethodModelV3:
		return modelInstalled(s.modelDirs[MethodModelV3], IndicTransEngine.RequiredFiles)
	default:
		return false
	}
}

func modelInstalled(dir string, required []string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	for _, name := range required {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// Methods describes each method with its current availability.
func (s *Service) Methods() []MethodInfo {
	infos := make([]MethodInfo, 0, len(AllMethods))
	for _, m := range AllMethods {
		info := MethodInfo{Value: m, Available: s.Available(m)}
		switch m {
		case MethodAPI:
			info.Label = "AI API (Gemini)"
			info.Description = "Uses AI API for translation"
		case MethodLocal:
			info.Label = "Local Model v2"
			info.Description = "Uses locally trained mBART model (modelv2)"
		case MethodModelV3:
			info.Label = "Local Model v3 (aiIndicTrans2)"
			info.Description = "Uses aiIndicTrans2 Hugging Face model (modelv3)"
		}
		infos = append(infos, info)
	}
	return infos
}
