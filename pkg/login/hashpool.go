package login

import (
	"context"
	"fmt"
)

// DefaultHashPoolSize bounds how many argon2id computations run at once.
// Each computation holds 64MB, so an unbounded flood of sign-ins would
// exhaust memory.
const DefaultHashPoolSize = 4

// dummyHash is a fixed argon2id hash of a throwaway password. Login verifies
// against it when the account does not exist so that unknown-email and
// wrong-password failures cost the same.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHRzb21lc2E$G2tVdpT2ddBvGpVCpZ0GM0B1tYmCOQPHUckiFGvyLYQ"

// HashPool serializes password hashing through a bounded semaphore. Both
// hashing and verification acquire a slot; acquisition honors context
// cancellation so shutdown does not strand waiters.
type HashPool struct {
	argon  *Argon2Hasher
	bcrypt *BcryptHasher
	sem    chan struct{}
}

// NewHashPool creates a pool admitting at most size concurrent computations.
func NewHashPool(size int) *HashPool {
	if size <= 0 {
		size = DefaultHashPoolSize
	}
	return &HashPool{
		argon:  NewArgon2Hasher(),
		bcrypt: NewBcryptHasher(),
		sem:    make(chan struct{}, size),
	}
}

func (p *HashPool) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hash pool wait canceled: %w", ctx.Err())
	}
}

func (p *HashPool) release() {
	<-p.sem
}

// Hash produces an argon2id hash of the password.
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.acquire(ctx); err != nil {
		return "", err
	}
	defer p.release()
	return p.argon.Hash(password)
}

// Verify checks the password against the stored hash, choosing the hasher by
// the hash's schema prefix.
func (p *HashPool) Verify(ctx context.Context, password, encodedHash string) (bool, error) {
	if err := p.acquire(ctx); err != nil {
		return false, err
	}
	defer p.release()
	return HasherForSchema(encodedHash, p.argon, p.bcrypt).Verify(password, encodedHash)
}

// VerifyDummy burns one verification against a fixed hash. It always reports
// a mismatch.
func (p *HashPool) VerifyDummy(ctx context.Context, password string) {
	if err := p.acquire(ctx); err != nil {
		return
	}
	defer p.release()
	p.argon.Verify(password, dummyHash)
}
