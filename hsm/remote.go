package hsm

import (
	"context"
	"errors"
	"fmt"
	"time"

	latticevault "github.com/latticevault/latticevault-go"
)

// Remote delegation defaults, overridable per client.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxAttempts = 3
	DefaultBackoff     = 100 * time.Millisecond
)

// RemoteBackend wraps a transport-level Backend with a per-call deadline,
// bounded retries and linear backoff. Every failure surfaces as a
// *latticevault.DelegationError; a deadline failure additionally matches
// latticevault.ErrDelegationTimeout. The caller decides what to do next --
// this layer never substitutes a software path.
type RemoteBackend struct {
	transport   Backend
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
}

// RemoteOption configures a RemoteBackend.
type RemoteOption func(*RemoteBackend)

// WithTimeout sets the per-attempt deadline.
func WithTimeout(d time.Duration) RemoteOption {
	return func(b *RemoteBackend) { b.timeout = d }
}

// WithMaxAttempts sets the attempt budget per operation.
func WithMaxAttempts(n int) RemoteOption {
	return func(b *RemoteBackend) { b.maxAttempts = n }
}

// WithBackoff sets the delay added between attempts.
func WithBackoff(d time.Duration) RemoteOption {
	return func(b *RemoteBackend) { b.backoff = d }
}

// NewRemoteBackend wraps transport with delegation policy.
func NewRemoteBackend(transport Backend, opts ...RemoteOption) *RemoteBackend {
	b := &RemoteBackend{
		transport:   transport,
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.maxAttempts < 1 {
		b.maxAttempts = 1
	}
	return b
}

// Name implements Backend.
func (b *RemoteBackend) Name() string {
	return fmt.Sprintf("remote(%s)", b.transport.Name())
}

// GenerateKeyPair implements Backend.
func (b *RemoteBackend) GenerateKeyPair(ctx context.Context, algorithm latticevault.Algorithm, variant string) (string, []byte, error) {
	var handle string
	var publicKey []byte
	err := b.do(ctx, "generate", func(ctx context.Context) error {
		var err error
		handle, publicKey, err = b.transport.GenerateKeyPair(ctx, algorithm, variant)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return handle, publicKey, nil
}

// Decapsulate implements Backend.
func (b *RemoteBackend) Decapsulate(ctx context.Context, handle string, ciphertext []byte) ([]byte, error) {
	var secret []byte
	err := b.do(ctx, "decapsulate", func(ctx context.Context) error {
		var err error
		secret, err = b.transport.Decapsulate(ctx, handle, ciphertext)
		return err
	})
	if err != nil {
		return nil, err
	}
	return secret, nil
}

// Sign implements Backend.
func (b *RemoteBackend) Sign(ctx context.Context, handle string, message []byte) ([]byte, error) {
	var signature []byte
	err := b.do(ctx, "sign", func(ctx context.Context) error {
		var err error
		signature, err = b.transport.Sign(ctx, handle, message)
		return err
	})
	if err != nil {
		return nil, err
	}
	return signature, nil
}

// DestroyKey implements Backend.
func (b *RemoteBackend) DestroyKey(ctx context.Context, handle string) error {
	return b.do(ctx, "destroy", func(ctx context.Context) error {
		return b.transport.DestroyKey(ctx, handle)
	})
}

// do runs op under the delegation policy. Cryptographic rejections
// (wrong-size inputs, unknown handles) are not retried; only transport
// failures burn attempts.
func (b *RemoteBackend) do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	attempts := 0
	for attempts < b.maxAttempts {
		attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, b.timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, context.DeadlineExceeded) {
			lastErr = fmt.Errorf("%w: %v", latticevault.ErrDelegationTimeout, err)
		} else if !retryable(err) {
			break
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			break
		}
		if attempts < b.maxAttempts && b.backoff > 0 {
			select {
			case <-time.After(time.Duration(attempts) * b.backoff):
			case <-ctx.Done():
			}
		}
	}

	return &latticevault.DelegationError{
		Op:       op,
		Backend:  b.transport.Name(),
		Attempts: attempts,
		Timeout:  b.timeout,
		Err:      lastErr,
	}
}

// retryable reports whether an attempt error is a transport condition worth
// another try. Definitive rejections from the device are final.
func retryable(err error) bool {
	switch {
	case errors.Is(err, latticevault.ErrKeyNotFound),
		errors.Is(err, latticevault.ErrParameterMismatch),
		errors.Is(err, latticevault.ErrUnknownVariant),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}
