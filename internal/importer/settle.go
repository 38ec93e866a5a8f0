package importer

import (
	"context"
	"time"
)

// DefaultMaxAttempts bounds how often a single field is written.
const DefaultMaxAttempts = 2

// settler is the part of driver.Driver the retry loop needs.
type settler interface {
	WaitSettle(ctx context.Context, d time.Duration) error
}

// Attempt is the result of one ApplyWithVerify call.
type Attempt struct {
	Attempts int   // mutations issued
	Verified bool  // the last read-back matched
	Err      error // last mutate or verify error, if any
}

// ApplyWithVerify writes with mutate, waits for the target to settle, and
// checks the result with verify. A failed check waits once more and repeats
// the write, up to maxAttempts writes in total. Running out of attempts is not
// an error: writes to the target are best-effort, and the caller reports an
// unverified Attempt as partially applied.
func ApplyWithVerify(
	ctx context.Context,
	s settler,
	wait time.Duration,
	maxAttempts int,
	mutate func(context.Context) error,
	verify func(context.Context) (bool, error),
) Attempt {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var res Attempt
	for res.Attempts < maxAttempts {
		if res.Attempts > 0 {
			if err := s.WaitSettle(ctx, wait); err != nil {
				res.Err = err
				return res
			}
		}

		res.Attempts++
		res.Err = nil
		if err := mutate(ctx); err != nil {
			res.Err = err
			continue
		}
		if err := s.WaitSettle(ctx, wait); err != nil {
			res.Err = err
			return res
		}
		ok, err := verify(ctx)
		if err != nil {
			res.Err = err
			continue
		}
		if ok {
			res.Verified = true
			return res
		}
	}
	return res
}
