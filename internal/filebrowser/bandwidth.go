package filebrowser

import (
	"context"
	"io"
	"log/slog"

	"golang.org/x/time/rate"
)

// burstMultiplier sizes the token bucket burst relative to the per-second
// rate, letting short pauses be spent on the next read.
const burstMultiplier = 2

// BandwidthLimiter throttles transfer bodies. One limiter is shared by all
// concurrent uploads so the aggregate stays under the configured limit.
type BandwidthLimiter struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewBandwidthLimiter returns a limiter for bytesPerSec, or nil when
// bytesPerSec is zero (unlimited). A nil *BandwidthLimiter is valid and
// passes readers through untouched.
func NewBandwidthLimiter(bytesPerSec int64, logger *slog.Logger) *BandwidthLimiter {
	if bytesPerSec <= 0 {
		return nil
	}

	if logger == nil {
		logger = slog.Default()
	}

	burst := int(bytesPerSec) * burstMultiplier

	logger.Info("bandwidth: limiter created",
		slog.Int64("bytes_per_sec", bytesPerSec),
		slog.Int("burst", burst),
	)

	return &BandwidthLimiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		logger:  logger,
	}
}

// WrapReader returns a rate-limited io.Reader. If bl is nil, returns r unchanged.
func (bl *BandwidthLimiter) WrapReader(ctx context.Context, r io.Reader) io.Reader {
	if bl == nil {
		return r
	}

	return &rateLimitedReader{r: r, limiter: bl.limiter, ctx: ctx}
}

// rateLimitedReader blocks after each read until the limiter admits the
// bytes just consumed.
type rateLimitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func (r *rateLimitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		if waitErr := waitN(r.ctx, r.limiter, n); waitErr != nil {
			return n, waitErr
		}
	}

	return n, err
}

// waitN splits a large token request into burst-sized chunks, since
// rate.Limiter.WaitN rejects requests above the burst.
func waitN(ctx context.Context, limiter *rate.Limiter, n int) error {
	burst := limiter.Burst()

	for n > 0 {
		take := min(n, burst)

		if err := limiter.WaitN(ctx, take); err != nil {
			return err
		}

		n -= take
	}

	return nil
}
