// Package workerpool fans independent dive-decode jobs out across a
// fixed pool of goroutines, grounded on the teacher's cmd/main.go
// convert_gsf_list (github.com/alitto/pond sized to 2*runtime.NumCPU(),
// cancelled through a context.Context). It exists purely to parallelize
// decoding of already-downloaded dive byte buffers (a dump() memory
// image split into records, or a directory of .fit files); it never
// touches Device.Foreach, which stays strictly sequential (spec.md §5).
package workerpool

import (
	"context"
	"runtime"
	"sync"

	"github.com/alitto/pond"

	"github.com/divelogio/divecore/internal/device"
	"github.com/divelogio/divecore/internal/divetypes"
	"github.com/divelogio/divecore/internal/fieldcache"
	"github.com/divelogio/divecore/internal/parser"
)

// DecodeJob is one unit of fan-out work: a dive's raw bytes plus the
// backend-specific Parser constructor needed to decode them. NewParser
// is supplied by the caller rather than looked up from a backend
// registry here, since workerpool has no reason to import every backend
// package just to dispatch on device.Kind.
type DecodeJob struct {
	BackendID   device.Kind
	Fingerprint []byte
	DiveBytes   []byte
	NewParser   func() parser.Parser
}

// DecodeResult is the outcome of decoding one DecodeJob: the field cache
// snapshot and sample stream a fresh Parser instance produced, or the
// error it returned. Each job gets its own Parser instance, since Parser
// is not safe for concurrent use (spec.md §5's single-owner model).
type DecodeResult struct {
	BackendID   device.Kind
	Fingerprint []byte
	Cache       *fieldcache.Cache
	Samples     []divetypes.Sample
	Err         error
}

// Pool runs DecodeJobs across a fixed-size pond.WorkerPool.
type Pool struct {
	pool *pond.WorkerPool
}

// New creates a Pool sized to 2*runtime.NumCPU(), matching the teacher's
// convert_gsf_list sizing, bound to ctx so cancelling ctx stops
// outstanding work.
func New(ctx context.Context) *Pool {
	n := runtime.NumCPU() * 2
	return &Pool{pool: pond.New(n, 0, pond.MinWorkers(n), pond.Context(ctx))}
}

// Stop waits for in-flight jobs to finish and releases the pool's
// workers.
func (p *Pool) Stop() {
	p.pool.StopAndWait()
}

// Decode submits every job to the pool and blocks until all have
// completed, returning results in the same order jobs were given.
func (p *Pool) Decode(jobs []DecodeJob) []DecodeResult {
	results := make([]DecodeResult, len(jobs))

	var wg sync.WaitGroup
	wg.Add(len(jobs))

	for i, job := range jobs {
		i, job := i, job
		p.pool.Submit(func() {
			defer wg.Done()
			results[i] = decodeOne(job)
		})
	}

	wg.Wait()
	return results
}

func decodeOne(job DecodeJob) DecodeResult {
	result := DecodeResult{BackendID: job.BackendID, Fingerprint: job.Fingerprint}

	p := job.NewParser()
	if err := p.SetData(job.DiveBytes); err != nil {
		result.Err = err
		return result
	}

	var samples []divetypes.Sample
	if err := p.SamplesForeach(func(s divetypes.Sample) { samples = append(samples, s) }); err != nil {
		result.Err = err
		return result
	}

	result.Cache = p.Cache()
	result.Samples = samples
	return result
}
