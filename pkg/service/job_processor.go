package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/dasmlab/vakya/pkg/chunker"
	"github.com/dasmlab/vakya/pkg/translate"
)

const (
	// DefaultJobWorkers is the number of jobs processed at once.
	DefaultJobWorkers = 2
	// DefaultJobTimeout bounds one job, all chunks included.
	DefaultJobTimeout = 10 * time.Minute
)

// ErrProcessorStopped fails jobs still queued when the processor stops.
var ErrProcessorStopped = errors.New("job processor stopped")

var (
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vakya_jobs_total",
			Help: "Total number of finished translation jobs",
		},
		[]string{"method", "status"},
	)

	jobsWaiting = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vakya_jobs_waiting",
			Help: "Number of submitted jobs waiting for a worker",
		},
	)
)

// JobProcessorConfig holds configuration for a JobProcessor.
type JobProcessorConfig struct {
	// Workers defaults to DefaultJobWorkers.
	Workers int
	// ChunkTokens is the estimated token budget per local model call.
	// Defaults to chunker.DefaultMaxTokens.
	ChunkTokens int
	// Timeout defaults to DefaultJobTimeout.
	Timeout time.Duration
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// JobProcessor processes translation jobs asynchronously on a worker pool.
type JobProcessor struct {
	translator  translate.Translator
	pool        *workerpool.WorkerPool
	ctx         context.Context
	cancel      context.CancelFunc
	chunkTokens int
	timeout     time.Duration
	logger      *logrus.Logger
}

// NewJobProcessor creates a new job processor.
func NewJobProcessor(translator translate.Translator, cfg JobProcessorConfig) *JobProcessor {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultJobWorkers
	}
	if cfg.ChunkTokens <= 0 {
		cfg.ChunkTokens = chunker.DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultJobTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &JobProcessor{
		translator:  translator,
		pool:        workerpool.New(cfg.Workers),
		ctx:         ctx,
		cancel:      cancel,
		chunkTokens: cfg.ChunkTokens,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
	}
}

// Submit queues job for processing and returns immediately. After Stop the
// job fails with ErrProcessorStopped.
func (p *JobProcessor) Submit(job *TranslationJob) {
	if p.ctx.Err() != nil {
		p.abandon(job)
		return
	}
	p.pool.Submit(func() {
		p.ProcessJob(job)
		jobsWaiting.Set(float64(p.pool.WaitingQueueSize()))
	})
	jobsWaiting.Set(float64(p.pool.WaitingQueueSize()))
}

// Stop cancels running jobs, which kills their model processes, fails every
// queued job with ErrProcessorStopped and waits for the workers to exit.
func (p *JobProcessor) Stop() {
	p.cancel()
	p.pool.StopWait()
}

func (p *JobProcessor) abandon(job *TranslationJob) {
	job.fail(ErrProcessorStopped)
	jobsTotal.WithLabelValues(string(job.Method), "failed").Inc()
	p.logger.WithField("job_id", job.ID).Warn("Dropped queued translation job on shutdown")
}

// ProcessJob translates job, chunk by chunk for local methods.
func (p *JobProcessor) ProcessJob(job *TranslationJob) {
	if p.ctx.Err() != nil {
		p.abandon(job)
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	startTime := time.Now()
	log := p.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"method": job.Method,
	})

	// The remote model takes long input whole; local models truncate at 256 tokens.
	var chunks []chunker.Chunk
	if job.Method == translate.MethodAPI {
		chunks = []chunker.Chunk{{Text: job.Text}}
	} else {
		chunks = chunker.Split(job.Text, p.chunkTokens)
	}

	job.start(len(chunks))
	log.WithField("chunks", len(chunks)).Info("Starting translation job processing")

	translated := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		result, err := p.translator.Translate(ctx, chunk.Text, job.Method)
		if err != nil {
			if len(chunks) > 1 {
				err = fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			log.WithError(err).Error("Translation job failed")
			job.fail(err)
			jobsTotal.WithLabelValues(string(job.Method), "failed").Inc()
			return
		}
		translated = append(translated, result.TranslatedText)

		progress := 10 + int32(float64(i+1)/float64(len(chunks))*80)
		job.updateProgress(progress, fmt.Sprintf("Translated chunk %d/%d", i+1, len(chunks)))
	}

	job.complete(&translate.Result{
		TranslatedText: chunker.Join(chunks, translated),
		Method:         job.Method,
		SourceLanguage: translate.SourceLanguage,
		TargetLanguage: translate.TargetLanguage,
	})
	jobsTotal.WithLabelValues(string(job.Method), "completed").Inc()

	log.WithFields(logrus.Fields{
		"chunks":      len(chunks),
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Translation job completed successfully")
}
