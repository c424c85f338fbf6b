package service

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dasmlab/vakya/pkg/translate"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeTranslator upper-cases text and records every call.
type fakeTranslator struct {
	mu        sync.Mutex
	calls     []string
	err       error
	failOn    string
	available map[translate.Method]bool
}

func (f *fakeTranslator) Translate(_ context.Context, text string, method translate.Method) (*translate.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, &translate.ProcessError{Prefix: "Translation failed", ExitCode: 1, Stderr: "boom"}
	}
	return &translate.Result{
		TranslatedText: strings.ToUpper(text),
		Method:         method,
		SourceLanguage: translate.SourceLanguage,
		TargetLanguage: translate.TargetLanguage,
	}, nil
}

func (f *fakeTranslator) Available(method translate.Method) bool {
	if f.available == nil {
		return true
	}
	return f.available[method]
}

func (f *fakeTranslator) Methods() []translate.MethodInfo {
	infos := make([]translate.MethodInfo, 0, len(translate.AllMethods))
	for _, m := range translate.AllMethods {
		infos = append(infos, translate.MethodInfo{
			Value:       m,
			Label:       "label " + string(m),
			Description: "description " + string(m),
			Available:   f.Available(m),
		})
	}
	return infos
}

func (f *fakeTranslator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
