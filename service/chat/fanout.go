package chat

import (
	"sync"
	"time"

	"PulseChat/logger"
)

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Fanout resolves recipient user ids into live handles and delivers one
// payload to each, best effort. A handle that cannot accept the frame
// within the per-delivery budget is treated as stale: it is closed and
// dropped from the Registry, and the remaining deliveries continue.
type Fanout struct {
	reg  *Registry
	jobs chan fanoutJob
	wait time.Duration // per-delivery enqueue budget

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewFanout(reg *Registry, workers, queue int, wait time.Duration) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if wait <= 0 {
		wait = 2 * time.Second
	}
	f := &Fanout{
		reg:    reg,
		jobs:   make(chan fanoutJob, queue),
		wait:   wait,
		stopCh: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		f.wg.Add(1)
		go f.worker()
	}
	return f
}

// Dispatch delivers the event to every recipient with a live connection.
// Ids without one are dropped silently; an empty recipient set is a no-op.
// Each resolved handle receives the event exactly once per call.
func (f *Fanout) Dispatch(ev *Event, recipients []string) {
	if ev == nil || len(recipients) == 0 {
		return
	}
	conns := f.reg.Resolve(recipients)
	if len(conns) == 0 {
		return
	}
	payload, err := ev.Encode()
	if err != nil {
		logger.Errorf("[fanout] encode %s: %v", ev.Kind, err)
		return
	}
	select {
	case f.jobs <- fanoutJob{conns: conns, payload: payload}:
	case <-f.stopCh:
	}
}

func (f *Fanout) worker() {
	defer f.wg.Done()
	for {
		select {
		case job := <-f.jobs:
			for _, c := range job.conns {
				if err := c.Enqueue(job.payload, f.wait); err != nil {
					// stale handle: reap it, keep going for the rest
					logger.Infof("[fanout] drop stale conn=%s user=%s: %v", c.ConnID, c.UserID, err)
					f.reg.Unregister(c.UserID, c)
					c.Close("stale connection reaped")
				}
			}
		case <-f.stopCh:
			return
		}
	}
}

// Close stops the workers; queued jobs are abandoned.
func (f *Fanout) Close() {
	f.stopOnce.Do(func() { close(f.stopCh) })
	f.wg.Wait()
}

// Exclude filters one user id out of a member list, for the event kinds
// that are routed only to the other members.
func Exclude(members []string, userID string) []string {
	out := make([]string, 0, len(members))
	for _, id := range members {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}
