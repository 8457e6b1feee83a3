package cast

import (
	"math/rand/v2"

	"github.com/muurk/castcore/internal/protocol"
)

// maxFirstRequestID bounds the random first request id
const maxFirstRequestID = 800

// response is what a continuation receives: either a reply or a local failure
type response struct {
	header  protocol.InboundHeader
	payload []byte
	err     error
}

// replyError converts a failure or a receiver error reply into an Error of kind
func (r response) replyError(kind Kind, message string) error {
	if r.err != nil {
		return wrapOp(kind, message, r.err)
	}
	if protocol.IsErrorReply(r.header.Type) {
		reason := string(r.header.Type)
		if r.header.Reason != "" {
			reason += " (" + r.header.Reason + ")"
		}
		return newError(kind, message+": receiver replied "+reason, nil)
	}
	return nil
}

type continuation func(response)

// correlator matches replies to requests by id. It is confined to the
// client loop and needs no locking.
type correlator struct {
	next         int
	lastAccepted int
	pending      map[int]continuation
}

// newCorrelator starts ids at first, or at a random value in [1, 800]
func newCorrelator(first int) *correlator {
	if first <= 0 {
		first = rand.IntN(maxFirstRequestID) + 1
	}
	return &correlator{
		next:    first,
		pending: make(map[int]continuation),
	}
}

func (c *correlator) nextID() int {
	id := c.next
	c.next++
	return id
}

// register stores fn for id; false if id already has one
func (c *correlator) register(id int, fn continuation) bool {
	if _, ok := c.pending[id]; ok {
		return false
	}
	c.pending[id] = fn
	return true
}

// resolve invokes and removes the continuation for id. Unknown ids are pushes.
func (c *correlator) resolve(id int, r response) bool {
	fn, ok := c.pending[id]
	if !ok {
		return false
	}
	delete(c.pending, id)
	fn(r)
	return true
}

// reject fails the request immediately, used when its write failed
func (c *correlator) reject(id int, err error) bool {
	return c.resolve(id, response{err: err})
}

// accept applies the monotonic guard. Positive ids at or below the last
// accepted one are stale; id 0 is a push and always passes.
func (c *correlator) accept(id int) bool {
	if id <= 0 {
		return true
	}
	if id <= c.lastAccepted {
		return false
	}
	c.lastAccepted = id
	return true
}

// failAll resolves every outstanding request with err
func (c *correlator) failAll(err error) {
	pending := c.pending
	c.pending = make(map[int]continuation)
	for _, fn := range pending {
		fn(response{err: err})
	}
}

func (c *correlator) outstanding() int {
	return len(c.pending)
}
