package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dasmlab/vakya/pkg/translate"
)

func waitDone(t *testing.T, job *TranslationJob) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if status, _ := job.Status(); status.Done() {
			return job.Snapshot()
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", job.ID)
	return JobSnapshot{}
}

func newTestQueue(tr translate.Translator, chunkTokens int) (*JobQueue, *JobProcessor) {
	processor := NewJobProcessor(tr, JobProcessorConfig{
		Workers:     2,
		ChunkTokens: chunkTokens,
		Logger:      quietLogger(),
	})
	return NewJobQueue(processor, quietLogger()), processor
}

func TestCreateJobValidation(t *testing.T) {
	q := NewJobQueue(nil, quietLogger())

	tests := []struct {
		name   string
		text   string
		method translate.Method
		want   error
	}{
		{"empty text", "", translate.MethodAPI, translate.ErrEmptyText},
		{"blank text", "  \n ", translate.MethodLocal, translate.ErrEmptyText},
		{"bad method", "hello", translate.Method("bogus"), translate.ErrInvalidMethod},
		{"empty method", "hello", "", translate.ErrInvalidMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := q.CreateJob(tt.text, tt.method); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, rejected jobs must not be stored", q.Len())
	}
}

func TestCreateJob(t *testing.T) {
	q := NewJobQueue(nil, quietLogger())

	job, err := q.CreateJob("hello", translate.MethodAPI)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.Method != translate.MethodAPI {
		t.Errorf("Method = %q, want api", job.Method)
	}

	snap := job.Snapshot()
	if snap.Status != JobStatusQueued || snap.ID == "" {
		t.Errorf("snapshot = %+v", snap)
	}

	got, err := q.GetJob(job.ID)
	if err != nil || got != job {
		t.Errorf("GetJob = %v, %v", got, err)
	}
	if _, err := q.GetJob("missing"); err == nil {
		t.Error("GetJob(missing) should fail")
	}
}

func TestJobCompletesInChunks(t *testing.T) {
	tr := &fakeTranslator{}
	q, p := newTestQueue(tr, 5)
	defer p.Stop()

	text := "One sentence. Two sentence.\n\nThree sentence."
	job, err := q.CreateJob(text, translate.MethodLocal)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	snap := waitDone(t, job)
	if snap.Status != JobStatusCompleted {
		t.Fatalf("status = %s, error = %q", snap.Status, snap.Error)
	}
	if snap.ProgressPercent != 100 {
		t.Errorf("progress = %d, want 100", snap.ProgressPercent)
	}
	if snap.Chunks != 3 || tr.callCount() != 3 {
		t.Errorf("chunks = %d, calls = %d, want 3", snap.Chunks, tr.callCount())
	}
	if want := strings.ToUpper(text); snap.Result.TranslatedText != want {
		t.Errorf("result = %q, want %q", snap.Result.TranslatedText, want)
	}
	if snap.StartedAt == nil || snap.CompletedAt == nil {
		t.Error("timestamps not set")
	}
}

func TestJobAPIIsNotChunked(t *testing.T) {
	tr := &fakeTranslator{}
	q, p := newTestQueue(tr, 5)
	defer p.Stop()

	job, err := q.CreateJob("One sentence. Two sentence. Three sentence.", translate.MethodAPI)
	if err != nil {
		t.Fatal(err)
	}
	if snap := waitDone(t, job); snap.Status != JobStatusCompleted {
		t.Fatalf("status = %s", snap.Status)
	}
	if tr.callCount() != 1 {
		t.Errorf("calls = %d, want 1", tr.callCount())
	}
}

func TestJobFails(t *testing.T) {
	tr := &fakeTranslator{failOn: "Two"}
	q, p := newTestQueue(tr, 5)
	defer p.Stop()

	job, err := q.CreateJob("One sentence. Two sentence. Three sentence.", translate.MethodModelV3)
	if err != nil {
		t.Fatal(err)
	}

	snap := waitDone(t, job)
	if snap.Status != JobStatusFailed {
		t.Fatalf("status = %s, want failed", snap.Status)
	}
	if !strings.Contains(snap.Error, "chunk 2/3") || !strings.Contains(snap.Error, "boom") {
		t.Errorf("error = %q", snap.Error)
	}
	if snap.Result != nil {
		t.Error("failed job should carry no result")
	}
	if tr.callCount() != 2 {
		t.Errorf("calls = %d, processing should stop at the failed chunk", tr.callCount())
	}
}

func TestCleanupOldJobs(t *testing.T) {
	tr := &fakeTranslator{}
	q, p := newTestQueue(tr, 0)
	defer p.Stop()

	done, err := q.CreateJob("finished", translate.MethodAPI)
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, done)

	pending := NewJobQueue(nil, quietLogger())
	if _, err := pending.CreateJob("never processed", translate.MethodAPI); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)
	if removed := q.CleanupOldJobs(10 * time.Millisecond); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
	if removed := pending.CleanupOldJobs(0); removed != 0 {
		t.Errorf("queued jobs must be kept, removed = %d", removed)
	}
}

// blockingTranslator holds every call until its context is done.
type blockingTranslator struct {
	fakeTranslator
	started chan struct{}
}

func (b *blockingTranslator) Translate(ctx context.Context, text string, _ translate.Method) (*translate.Result, error) {
	b.mu.Lock()
	b.calls = append(b.calls, text)
	b.mu.Unlock()

	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, &translate.AbortedError{Engine: "mbart", Err: ctx.Err()}
}

func TestStopCancelsRunningAndQueuedJobs(t *testing.T) {
	tr := &blockingTranslator{started: make(chan struct{}, 1)}
	processor := NewJobProcessor(tr, JobProcessorConfig{
		Workers: 1,
		Timeout: time.Hour,
		Logger:  quietLogger(),
	})
	q := NewJobQueue(processor, quietLogger())

	var jobs []*TranslationJob
	for i := 0; i < 5; i++ {
		job, err := q.CreateJob("hello", translate.MethodLocal)
		if err != nil {
			t.Fatal(err)
		}
		jobs = append(jobs, job)
	}

	select {
	case <-tr.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first job never started")
	}

	stopped := make(chan struct{})
	start := time.Now()
	go func() {
		processor.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return with jobs still queued")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Stop took %s", elapsed)
	}

	for i, job := range jobs {
		snap := job.Snapshot()
		if snap.Status != JobStatusFailed {
			t.Errorf("job %d status = %s, want failed", i, snap.Status)
		}
	}
	if first := jobs[0].Snapshot(); !strings.Contains(first.Error, context.Canceled.Error()) {
		t.Errorf("running job error = %q, want cancellation", first.Error)
	}
	for i, job := range jobs[1:] {
		if snap := job.Snapshot(); snap.Error != ErrProcessorStopped.Error() {
			t.Errorf("queued job %d error = %q, want %q", i+1, snap.Error, ErrProcessorStopped)
		}
	}
	if tr.callCount() != 1 {
		t.Errorf("calls = %d, queued jobs must not reach the translator", tr.callCount())
	}

	late, err := q.CreateJob("after stop", translate.MethodAPI)
	if err != nil {
		t.Fatal(err)
	}
	if snap := late.Snapshot(); snap.Status != JobStatusFailed {
		t.Errorf("job submitted after Stop status = %s, want failed", snap.Status)
	}
}
