// Gói rotator giữ danh sách token GitHub và xoay vòng khi bị rate limit.
// Rotator là nơi duy nhất sở hữu thứ tự token, các nhánh duyệt cây chỉ gọi
// Current/Rotate thông qua con trỏ được truyền vào.

package rotator

import (
	"errors"
	"sync"

	"github.com/thep200/github-file-crawler/pkg/log"
)

var ErrNoCredentials = errors.New("rotator needs at least one credential")

// Credential is an opaque API token.
type Credential string

// String masks the token so it is safe to pass to a logger.
func (c Credential) String() string {
	return log.Mask(string(c))
}

// Header returns the Authorization header value.
func (c Credential) Header() string {
	return "token " + string(c)
}

type Rotator struct {
	mu    sync.Mutex
	ring  []Credential
	turns int
}

func New(tokens []string) (*Rotator, error) {
	ring := make([]Credential, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		ring = append(ring, Credential(t))
	}
	if len(ring) == 0 {
		return nil, ErrNoCredentials
	}
	return &Rotator{ring: ring}, nil
}

func (r *Rotator) Current() Credential {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ring[0]
}

// Rotate moves the front credential to the back and returns the new front.
func (r *Rotator) Rotate() Credential {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotateLocked()
}

// RotateFrom rotates only when failed is still the front credential. Callers
// throttled on the same token concurrently therefore advance the ring once.
func (r *Rotator) RotateFrom(failed Credential) Credential {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ring[0] != failed {
		return r.ring[0]
	}
	return r.rotateLocked()
}

func (r *Rotator) rotateLocked() Credential {
	front := r.ring[0]
	copy(r.ring, r.ring[1:])
	r.ring[len(r.ring)-1] = front
	r.turns++
	return r.ring[0]
}

func (r *Rotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ring)
}

// Turns is the number of rotations performed so far.
func (r *Rotator) Turns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.turns
}

// Credentials returns a copy of the ring in its current order.
func (r *Rotator) Credentials() []Credential {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Credential, len(r.ring))
	copy(out, r.ring)
	return out
}
