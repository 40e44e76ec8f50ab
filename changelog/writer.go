package changelog

import (
	"context"
	"fmt"

	"github.com/vistore/vistore/digest"
)

// WriterState is a writer session's position in the IDLE -> STAGED ->
// WRITTEN -> DONE state machine (§4.B). A failure after STAGED but
// before WRITTEN leaves orphan blobs for gc to reclaim; a failure after
// WRITTEN is a committed revision regardless of whether the caller ever
// learns the outcome, since the revision key alone identifies it.
type WriterState int

const (
	Idle WriterState = iota
	Staged
	Written
	Done
)

func (s WriterState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Staged:
		return "STAGED"
	case Written:
		return "WRITTEN"
	case Done:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Writer drives one commit through the writer state machine. It is not
// safe for concurrent use; each write gets its own Writer.
type Writer struct {
	cl       *Changelog
	state    WriterState
	parent   digest.Digest
	payloads []digest.Digest
}

// NewWriter observes the current heads and opens a writer session
// parented on them. With zero heads the session is rooted at the zero
// digest; with more than one (concurrent siblings not yet reconciled),
// the lexicographically smallest head is chosen, a deterministic but
// arbitrary tie-break — the resulting revision simply becomes another
// sibling, same as any other concurrent write.
func (c *Changelog) NewWriter(ctx context.Context) (*Writer, error) {
	heads, err := c.Heads(ctx)
	if err != nil {
		return nil, fmt.Errorf("changelog: new writer: %w", err)
	}
	parent := digest.Zero
	if len(heads) > 0 {
		parent = heads[0]
	}
	return &Writer{cl: c, state: Idle, parent: parent}, nil
}

// Parent is the revision this writer's eventual commit will extend.
func (w *Writer) Parent() digest.Digest { return w.parent }

// Stage records the payload digests already written to the POD,
// transitioning IDLE -> STAGED.
func (w *Writer) Stage(payloads []digest.Digest) error {
	if w.state != Idle {
		return fmt.Errorf("changelog: writer: Stage in state %s, want IDLE", w.state)
	}
	w.payloads = payloads
	w.state = Staged
	return nil
}

// MarkWritten transitions STAGED -> WRITTEN, asserting the staged blobs
// are now durable in the POD.
func (w *Writer) MarkWritten() error {
	if w.state != Staged {
		return fmt.Errorf("changelog: writer: MarkWritten in state %s, want STAGED", w.state)
	}
	w.state = Written
	return nil
}

// Commit writes the revision record, transitioning WRITTEN -> DONE.
func (w *Writer) Commit(ctx context.Context, startKey, endKey []byte, author string, timestamp int64) (digest.Digest, error) {
	if w.state != Written {
		return "", fmt.Errorf("changelog: writer: Commit in state %s, want WRITTEN", w.state)
	}
	k, err := w.cl.Commit(ctx, w.parent, w.payloads, startKey, endKey, author, timestamp)
	if err != nil {
		return "", err
	}
	w.state = Done
	return k, nil
}

// State reports the writer's current position in the state machine.
func (w *Writer) State() WriterState { return w.state }
