package commandplan

import (
	"context"
	"sync"

	"github.com/lustrefs/manager/pkg/logger"
)

// changeBuffer is the writer's inbound channel capacity. The original
// uses an unbounded mpsc channel; Go has no unbounded channel, so this
// picks a buffer generous enough that a burst of stdout/stderr frames
// from one stack does not ordinarily block the stack task. Once the
// buffer is full, Send blocks until the writer catches up.
const changeBuffer = 4096

// Persister is the subset of Store the writer needs, small enough to
// substitute with a fake in tests that have no database available.
type Persister interface {
	Update(ctx context.Context, id int64, plan Plan, state State) error
}

// Writer is the plan's single consumer: it owns the in-memory Plan
// exclusively and is the only goroutine that mutates it, matching
// spec.md section 5 ("the plan document is owned exclusively by the plan
// writer; other tasks communicate only via the change channel").
type Writer struct {
	store  Persister
	planID int64
	plan   Plan
	ch     chan Change
	log    *logger.Logger

	closeMu sync.Mutex
	closed  bool
}

// NewWriter constructs a Writer over an already-persisted plan. Run must
// be started in its own goroutine before any Change is sent.
func NewWriter(store Persister, planID int64, plan Plan, log *logger.Logger) *Writer {
	return &Writer{
		store:  store,
		planID: planID,
		plan:   plan,
		ch:     make(chan Change, changeBuffer),
		log:    log,
	}
}

// Send enqueues a change for the writer goroutine to apply. Safe to call
// from any number of concurrent stack tasks, and safe to call after
// Close (a no-op then) since Cancel may race the command's own
// completion.
func (w *Writer) Send(c Change) {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()
	if w.closed {
		return
	}
	w.ch <- c
}

// Close signals no further changes will be sent; Run drains whatever is
// already queued and returns. Safe to call more than once.
func (w *Writer) Close() {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.ch)
}

// CancelNonTerminal marks every node across the plan that is not already
// Completed, Cancelled, or Errored as Cancelled, applied atomically by
// the writer goroutine (spec.md section 4.6).
func (w *Writer) CancelNonTerminal() {
	w.Send(NewCancelAllChange())
}

// Run consumes changes until Close is called or ctx is done, applying
// each to the in-memory plan, recomputing the rolled-up state, and
// persisting both. Serialization or database failures are logged and
// never stop the loop (spec.md section 4.5: "do not stop the writer").
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case c, ok := <-w.ch:
			if !ok {
				return
			}
			w.apply(ctx, c)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Writer) apply(ctx context.Context, c Change) {
	if !w.plan.Apply(c) {
		w.log.Warnw("change references unknown node", "job", c.JobName, "node", c.NodeID)
		return
	}

	state := w.plan.RolledUpState()
	if err := w.store.Update(ctx, w.planID, w.plan, state); err != nil {
		w.log.Warnw("could not persist command plan", "plan_id", w.planID, "err", err)
	}
}

// StepWriter scopes writes to a single (job, node) pair, the handle the
// executor runtime hands each dispatched step.
type StepWriter struct {
	writer *Writer
	job    string
	node   string
}

// StepWriter returns a handle scoped to one node.
func (w *Writer) StepWriter(job, node string) *StepWriter {
	return &StepWriter{writer: w, job: job, node: node}
}

func (s *StepWriter) Started(at int64) {
	s.writer.Send(NewStartedChange(s.job, s.node, at))
}

func (s *StepWriter) Ended(at int64) {
	s.writer.Send(NewEndedChange(s.job, s.node, at))
}

func (s *StepWriter) SetState(state State) {
	s.writer.Send(NewStateChange(s.job, s.node, state))
}

// Stdout returns an io.Writer that frames every write as a Change and
// forwards it to the plan writer.
func (s *StepWriter) Stdout() *frameWriter {
	return &frameWriter{step: s, stderr: false}
}

// Stderr returns the stderr counterpart of Stdout.
func (s *StepWriter) Stderr() *frameWriter {
	return &frameWriter{step: s, stderr: true}
}

// frameWriter implements io.Writer by forwarding each Write call as a
// single Stdout or Stderr Change, framed with the owning step's identity.
type frameWriter struct {
	step   *StepWriter
	stderr bool
}

func (f *frameWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)

	if f.stderr {
		f.step.writer.Send(NewStderrChange(f.step.job, f.step.node, buf))
	} else {
		f.step.writer.Send(NewStdoutChange(f.step.job, f.step.node, buf))
	}
	return len(p), nil
}
