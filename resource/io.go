package resource

import (
	"context"
	"io"
)

// Reader returns r throttled to the controller's IO budget. If the
// controller does not throttle IO, r is returned unchanged.
func Reader(ctx context.Context, c *Controller, r io.Reader) io.Reader {
	if c.ioBurst() == 0 {
		return r
	}

	return &limitedReader{ctx: ctx, c: c, r: r}
}

// Writer returns w throttled to the controller's IO budget. If the
// controller does not throttle IO, w is returned unchanged.
func Writer(ctx context.Context, c *Controller, w io.Writer) io.Writer {
	if c.ioBurst() == 0 {
		return w
	}

	return &limitedWriter{ctx: ctx, c: c, w: w}
}

type limitedReader struct {
	ctx context.Context
	c   *Controller
	r   io.Reader
}

func (l *limitedReader) Read(p []byte) (int, error) {
	// Cap the request at the burst so a single large buffer cannot demand
	// more tokens than the limiter can ever grant.
	if b := l.c.ioBurst(); b > 0 && len(p) > b {
		p = p[:b]
	}

	n, err := l.r.Read(p)
	if n > 0 {
		if werr := l.c.AcquireIO(l.ctx, n); werr != nil {
			return n, werr
		}
	}

	return n, err
}

type limitedWriter struct {
	ctx context.Context
	c   *Controller
	w   io.Writer
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	var written int

	for len(p) > 0 {
		chunk := len(p)
		if b := l.c.ioBurst(); b > 0 && chunk > b {
			chunk = b
		}

		if err := l.c.AcquireIO(l.ctx, chunk); err != nil {
			return written, err
		}

		n, err := l.w.Write(p[:chunk])
		written += n

		if err != nil {
			return written, err
		}

		p = p[chunk:]
	}

	return written, nil
}
