package cryptox

import "context"

// HashPool bounds the number of concurrent Argon2 computations so a burst of
// login attempts cannot pin every core. Hashing is the only slow operation in
// the auth path; everything else is in-memory-speed.
type HashPool struct {
	slots chan struct{}
}

// NewHashPool creates a pool allowing up to size concurrent hash operations.
func NewHashPool(size int) *HashPool {
	if size <= 0 {
		size = 4
	}
	return &HashPool{slots: make(chan struct{}, size)}
}

// Hash computes an Argon2id hash inside the pool, waiting for a free slot.
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.acquire(ctx); err != nil {
		return "", err
	}
	defer p.release()
	return HashPassword(password)
}

// Verify checks a password against an encoded hash inside the pool.
func (p *HashPool) Verify(ctx context.Context, password, encodedHash string) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()
	return VerifyPassword(password, encodedHash)
}

func (p *HashPool) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *HashPool) release() { <-p.slots }
