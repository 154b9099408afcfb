package ponder

import "context"

// DriveOption configures a single Drive invocation.
type DriveOption func(*driveConfig)

type driveConfig struct {
	onUpdate   func(Output)
	typesetter Typesetter
}

// WithUpdateHandler sets a callback that receives the output after every
// event. If nil or not set, updates are not reported.
func WithUpdateHandler(h func(Output)) DriveOption {
	return func(c *driveConfig) { c.onUpdate = h }
}

// WithTypesetter typesets the final render before Drive returns.
func WithTypesetter(t Typesetter) DriveOption {
	return func(c *driveConfig) { c.typesetter = t }
}

// Drive runs a session to completion on the calling goroutine: it opens the
// stream, applies every event in arrival order and typesets only the last
// render. It returns the session's terminal error, if any. Cancelling ctx
// closes the stream.
func Drive(ctx context.Context, s *Session, client Client, opts ...DriveOption) error {
	var cfg driveConfig
	for _, o := range opts {
		o(&cfg)
	}
	notify := func() {
		if cfg.onUpdate != nil {
			cfg.onUpdate(s.Output())
		}
	}

	if err := s.Open(ctx, client); err != nil {
		notify()
		return err
	}
	defer s.Close()

	var last *TypesetJob
	for !s.Closed() {
		evt, err := s.stream.Next()
		if err != nil {
			if ctx.Err() != nil {
				_ = s.Close()
				return ctx.Err()
			}
			s.HandleStreamDone(err)
			notify()
			break
		}
		if job := s.HandleEvent(evt); job != nil {
			last = job
		}
		notify()
	}

	if last != nil && cfg.typesetter != nil && last.Version == s.out.Version {
		typeset, err := cfg.typesetter.Typeset(ctx, last.Rendered)
		if err != nil {
			s.logger.Warn("typeset failed", "error", err)
		} else if s.ApplyTypeset(*last, typeset) {
			notify()
		}
	}
	return s.err
}
