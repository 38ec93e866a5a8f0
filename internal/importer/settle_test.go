package importer

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingSettler struct {
	waits int
	err   error
}

func (s *countingSettler) WaitSettle(ctx context.Context, d time.Duration) error {
	s.waits++
	return s.err
}

func TestApplyWithVerify(t *testing.T) {
	errWrite := errors.New("write failed")

	tests := []struct {
		name         string
		mutateErrs   []error // per attempt
		verifyOK     []bool  // per attempt
		wantAttempts int
		wantVerified bool
		wantErr      error
	}{
		{
			name:         "first attempt verifies",
			mutateErrs:   []error{nil},
			verifyOK:     []bool{true},
			wantAttempts: 1,
			wantVerified: true,
		},
		{
			name:         "second attempt verifies",
			mutateErrs:   []error{nil, nil},
			verifyOK:     []bool{false, true},
			wantAttempts: 2,
			wantVerified: true,
		},
		{
			name:         "never verifies",
			mutateErrs:   []error{nil, nil},
			verifyOK:     []bool{false, false},
			wantAttempts: 2,
		},
		{
			name:         "write error then success",
			mutateErrs:   []error{errWrite, nil},
			verifyOK:     []bool{true, true},
			wantAttempts: 2,
			wantVerified: true,
		},
		{
			name:         "write keeps failing",
			mutateErrs:   []error{errWrite, errWrite},
			verifyOK:     []bool{false, false},
			wantAttempts: 2,
			wantErr:      errWrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &countingSettler{}
			n := 0
			res := ApplyWithVerify(context.Background(), s, time.Millisecond, 2,
				func(context.Context) error {
					err := tt.mutateErrs[n]
					n++
					return err
				},
				func(context.Context) (bool, error) {
					return tt.verifyOK[n-1], nil
				},
			)
			if res.Attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", res.Attempts, tt.wantAttempts)
			}
			if res.Verified != tt.wantVerified {
				t.Errorf("verified = %v, want %v", res.Verified, tt.wantVerified)
			}
			if !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("err = %v, want %v", res.Err, tt.wantErr)
			}
		})
	}
}

// TestApplyWithVerifySettleError verifies a failing wait ends the loop.
func TestApplyWithVerifySettleError(t *testing.T) {
	s := &countingSettler{err: context.Canceled}
	writes := 0
	res := ApplyWithVerify(context.Background(), s, time.Millisecond, 3,
		func(context.Context) error { writes++; return nil },
		func(context.Context) (bool, error) { return true, nil },
	)
	if writes != 1 || res.Verified || !errors.Is(res.Err, context.Canceled) {
		t.Errorf("writes=%d res=%+v, want one write and a cancellation error", writes, res)
	}
}

// TestApplyWithVerifyDefaultAttempts verifies a non-positive bound falls back
// to the default.
func TestApplyWithVerifyDefaultAttempts(t *testing.T) {
	res := ApplyWithVerify(context.Background(), &countingSettler{}, 0, 0,
		func(context.Context) error { return nil },
		func(context.Context) (bool, error) { return false, nil },
	)
	if res.Attempts != DefaultMaxAttempts {
		t.Errorf("attempts = %d, want %d", res.Attempts, DefaultMaxAttempts)
	}
}
