package main

import (
	"context"
	"errors"

	"github.com/dasmlab/vakya/pkg/gemini"
	"github.com/dasmlab/vakya/pkg/translate"
)

// newTranslationService wires the runner, the optional Gemini generator and
// the model directories from cfg. A missing API key only disables the api
// method.
func newTranslationService(ctx context.Context) (*translate.Service, translate.Generator, error) {
	var generator translate.Generator
	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey: cfg.Gemini.APIKey,
		Model:  cfg.Gemini.Model,
		Logger: logger,
	})
	switch {
	case err == nil:
		generator = client
	case errors.Is(err, gemini.ErrMissingAPIKey):
		logger.Warn("No Gemini API key configured, api method and chat routes are disabled")
	default:
		return nil, nil, err
	}

	runner := translate.NewRunner(translate.RunnerConfig{
		Python:        cfg.Python,
		ScratchDir:    cfg.ScratchDir,
		Timeout:       cfg.Subprocess.Timeout,
		MaxConcurrent: cfg.Subprocess.MaxConcurrent,
		Logger:        logger,
	})

	svc := translate.NewService(translate.ServiceConfig{
		Runner:        runner,
		Generator:     generator,
		LocalModelDir: cfg.Models.LocalDir,
		ModelV3Dir:    cfg.Models.ModelV3Dir,
		Logger:        logger,
	})
	return svc, generator, nil
}
