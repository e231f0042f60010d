package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

type ErrorKind int

const (
	// KindThrottled: 403/429 có tín hiệu rate limit
	KindThrottled ErrorKind = iota + 1
	// KindHTTP: mọi status khác 200 không phải rate limit
	KindHTTP
	// KindDecode: body không parse được hoặc blob không phải text
	KindDecode
	// KindTransport: mạng không dùng được (dial lỗi hoặc quá nhiều request lỗi liên tiếp)
	KindTransport
	// KindTransient: một request bị timeout hoặc đứt giữa chừng
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindThrottled:
		return "throttled"
	case KindHTTP:
		return "http"
	case KindDecode:
		return "decode"
	case KindTransport:
		return "transport"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

var ErrRetriesExhausted = errors.New("rate limit retries exhausted")

type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	URL        string
	// Zero when the provider did not advertise a reset time.
	ResetAt time.Time
	Err     error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s error fetching %s", e.Kind, e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first FetchError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// IsFatal reports errors that should stop a crawl instead of skipping a branch.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return KindOf(err) == KindTransport
}

// roundTripKind classifies an error from http.Client.Do or from reading the
// body. Only a dial that is refused or cannot resolve is KindTransport;
// timeouts, resets and truncated bodies are KindTransient.
func roundTripKind(err error) ErrorKind {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() {
		return KindTransport
	}
	return KindTransient
}
