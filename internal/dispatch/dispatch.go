// Package dispatch routes detected face regions to the recognition adapter
// with at most one in-flight job per tracked face.
package dispatch

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"mirror/internal/logging"
	"mirror/internal/recognize"
	"mirror/internal/services"
	"mirror/internal/vision"
)

// Result is one recognition outcome handed to the identity resolver.
// PersonID is empty when no match cleared recognition, including timeouts and
// adapter errors. NoFace marks a frame with no detected regions at all.
type Result struct {
	TrackID    int64
	PersonID   string
	Distance   float64
	FrameSeq   uint64
	ProducedAt time.Time
	NoFace     bool
}

// Stats is a point-in-time snapshot of dispatcher counters.
type Stats struct {
	Submitted     uint64 `json:"submitted"`
	Dropped       uint64 `json:"dropped"`
	Timeouts      uint64 `json:"timeouts"`
	AdapterErrors uint64 `json:"adapter_errors"`
	Results       uint64 `json:"results"`
	ActiveTracks  int    `json:"active_tracks"`
}

// Options configures a Dispatcher.
type Options struct {
	Timeout       time.Duration
	MaxInFlight   int
	MaxDistancePx int
	QueueSize     int
	// CropEdge is the square size face crops are scaled to before they are
	// handed to the recognition adapter.
	CropEdge int
}

// Dispatcher owns the tracker and the in-flight slot table. Submissions for a
// face whose previous job is still running are dropped rather than queued, so
// a slow adapter cannot grow an unbounded backlog.
type Dispatcher struct {
	adapter recognize.Adapter
	logger  *slog.Logger
	opts    Options

	mu       sync.Mutex
	tracker  *tracker
	inFlight map[int64]bool

	results chan Result
	wg      sync.WaitGroup

	submitted     atomic.Uint64
	dropped       atomic.Uint64
	timeouts      atomic.Uint64
	adapterErrors atomic.Uint64
	resultCount   atomic.Uint64
}

// New builds a Dispatcher. Results are delivered on the channel returned by
// Results; the caller must drain it.
func New(adapter recognize.Adapter, logger *slog.Logger, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 4
	}
	if opts.MaxDistancePx <= 0 {
		opts.MaxDistancePx = 80
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.CropEdge <= 0 {
		opts.CropEdge = 160
	}
	return &Dispatcher{
		adapter:  adapter,
		logger:   logger.With(logging.String(logging.FieldComponent, "dispatch")),
		opts:     opts,
		tracker:  newTracker(opts.MaxDistancePx),
		inFlight: make(map[int64]bool),
		results:  make(chan Result, opts.QueueSize),
	}
}

// Results returns the channel recognition outcomes are delivered on.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Submit dispatches recognition jobs for a frame's regions. Fire-and-forget:
// regions whose track already has a job in flight, and regions beyond the
// concurrency cap, are dropped. An empty region slice emits a NoFace result.
func (d *Dispatcher) Submit(ctx context.Context, frame *vision.Frame, regions []vision.Region) {
	if len(regions) == 0 {
		d.deliver(Result{
			FrameSeq:   frame.Seq,
			Distance:   math.Inf(1),
			ProducedAt: time.Now(),
			NoFace:     true,
		})
		return
	}

	d.mu.Lock()
	d.tracker.prune(frame.Seq)
	type job struct {
		trackID int64
		region  vision.Region
	}
	var jobs []job
	for _, region := range regions {
		trackID := d.tracker.assign(region)
		if d.inFlight[trackID] {
			d.dropped.Add(1)
			continue
		}
		if len(d.inFlight)+len(jobs) >= d.opts.MaxInFlight {
			d.dropped.Add(1)
			continue
		}
		jobs = append(jobs, job{trackID: trackID, region: region})
	}
	for _, j := range jobs {
		d.inFlight[j.trackID] = true
	}
	d.mu.Unlock()

	for _, j := range jobs {
		d.submitted.Add(1)
		d.wg.Add(1)
		go d.recognize(ctx, frame, j.region, j.trackID)
	}
}

// recognize runs one job and always frees its slot. A job that outlives the
// timeout ceiling resolves to no-match immediately; the late adapter reply is
// discarded so it cannot poison the slot's next job.
func (d *Dispatcher) recognize(ctx context.Context, frame *vision.Frame, region vision.Region, trackID int64) {
	defer d.wg.Done()

	result := Result{
		TrackID:  trackID,
		Distance: math.Inf(1),
		FrameSeq: frame.Seq,
	}

	crop, err := vision.CropRegion(frame, region, d.opts.CropEdge)
	if err != nil {
		d.adapterErrors.Add(1)
		d.logger.Warn("crop failed, treating as no match",
			logging.Int64(logging.FieldTrack, trackID),
			logging.Uint64(logging.FieldFrameSeq, frame.Seq),
			logging.Error(err))
		result.ProducedAt = time.Now()
		d.finish(result)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	type matchReply struct {
		match recognize.Match
		err   error
	}
	replies := make(chan matchReply, 1)
	go func() {
		match, matchErr := d.adapter.Match(jobCtx, crop)
		replies <- matchReply{match: match, err: matchErr}
	}()

	select {
	case <-jobCtx.Done():
		d.timeouts.Add(1)
		d.logger.Warn("recognition timed out, treating as no match",
			logging.Int64(logging.FieldTrack, trackID),
			logging.Uint64(logging.FieldFrameSeq, frame.Seq),
			logging.Duration("timeout", d.opts.Timeout),
			logging.Error(services.Wrap(services.ErrTimeout, "dispatch", "recognize", "job exceeded ceiling", jobCtx.Err())))
	case reply := <-replies:
		if reply.err != nil {
			d.adapterErrors.Add(1)
			d.logger.Warn("recognition adapter error, treating as no match",
				logging.Int64(logging.FieldTrack, trackID),
				logging.Uint64(logging.FieldFrameSeq, frame.Seq),
				logging.Error(reply.err))
		} else {
			result.PersonID = reply.match.PersonID
			result.Distance = reply.match.Distance
		}
	}

	result.ProducedAt = time.Now()
	d.finish(result)
}

// finish frees the job's slot before delivering its result, so a consumer
// reacting to the result can immediately submit for the same track.
func (d *Dispatcher) finish(result Result) {
	d.mu.Lock()
	delete(d.inFlight, result.TrackID)
	d.mu.Unlock()
	d.deliver(result)
}

// deliver hands a result to the resolver without blocking. If the resolver
// has fallen behind and the queue is full the result is dropped; a fresher
// one is already on the way.
func (d *Dispatcher) deliver(result Result) {
	select {
	case d.results <- result:
		d.resultCount.Add(1)
	default:
		d.dropped.Add(1)
	}
}

// Close waits for in-flight jobs and closes the result channel.
func (d *Dispatcher) Close() {
	d.wg.Wait()
	close(d.results)
}

// Stats reports dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	active := d.tracker.active()
	d.mu.Unlock()
	return Stats{
		Submitted:     d.submitted.Load(),
		Dropped:       d.dropped.Load(),
		Timeouts:      d.timeouts.Load(),
		AdapterErrors: d.adapterErrors.Load(),
		Results:       d.resultCount.Load(),
		ActiveTracks:  active,
	}
}
