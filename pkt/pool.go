package pkt

import "sync"

// poolChunkSize is the growth increment used when a SessionPool runs out
// of idle sessions, mirroring the fixed-chunk reallocation strategy of the
// handle table this pool is modeled on (grow by a constant chunk, not by
// doubling).
const poolChunkSize = 16

// SessionPool hands out Token sessions to concurrent goroutines without
// re-acquiring one from the token on every packet. It is safe for
// concurrent use.
type SessionPool struct {
	mu      sync.Mutex
	tok     Token
	alg     EncrID
	mode    CipherMode
	idle    []Session
	outLen  int // number of sessions currently on loan, for diagnostics
}

// NewSessionPool creates a pool that lazily acquires sessions from tok for
// the given algorithm/mode pair.
func NewSessionPool(tok Token, alg EncrID, mode CipherMode) *SessionPool {
	return &SessionPool{tok: tok, alg: alg, mode: mode}
}

// Get returns an idle session, growing the pool by poolChunkSize if none
// is available. If growth fails partway, the sessions already acquired in
// this chunk are kept idle rather than released, matching the handle-table
// behavior of leaking rather than unwinding a partial chunk.
func (p *SessionPool) Get() (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.idle) == 0 {
		for i := 0; i < poolChunkSize; i++ {
			s, err := p.tok.SessionAcquire(p.alg, p.mode)
			if err != nil {
				if len(p.idle) == 0 {
					return nil, ErrF(ErrCryptoInitFailed, "SessionPool: grow: %v", err)
				}
				break
			}
			p.idle = append(p.idle, s)
		}
	}
	s := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	p.outLen++
	return s, nil
}

// Put returns a session to the idle list.
func (p *SessionPool) Put(s Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle = append(p.idle, s)
	p.outLen--
}

// OnLoan reports how many sessions are currently checked out.
func (p *SessionPool) OnLoan() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outLen
}
