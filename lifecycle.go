package ponder

// Lifecycle keeps at most one live Session. A new submission always
// pre-empts the current one; there is no queueing.
type Lifecycle struct {
	renderer Renderer
	opts     []SessionOption
	width    int
	current  *Session
}

// NewLifecycle creates a Lifecycle whose sessions render with renderer and
// are configured with opts.
func NewLifecycle(renderer Renderer, opts ...SessionOption) *Lifecycle {
	return &Lifecycle{renderer: renderer, opts: opts}
}

// Submit validates req, abandons the current session and starts a new one.
// An invalid request leaves the current session untouched.
func (l *Lifecycle) Submit(req Request) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	l.abandonCurrent()
	opts := l.opts
	if l.width > 0 {
		opts = append(opts[:len(opts):len(opts)], WithWidth(l.width))
	}
	l.current = NewSession(req, l.renderer, opts...)
	return l.current, nil
}

// Reset abandons the current session, if any.
func (l *Lifecycle) Reset() {
	l.abandonCurrent()
	l.current = nil
}

// Current returns the session started by the latest submission, or nil.
func (l *Lifecycle) Current() *Session {
	return l.current
}

// Owns reports whether s is the current, non-abandoned session. Hosts use it
// to drop messages that belong to a superseded session.
func (l *Lifecycle) Owns(s *Session) bool {
	return s != nil && s == l.current && !s.abandoned
}

// Resize records the render width for new sessions and re-renders the
// current one.
func (l *Lifecycle) Resize(width int) *TypesetJob {
	l.width = width
	if l.current == nil {
		return nil
	}
	return l.current.Resize(width)
}

func (l *Lifecycle) abandonCurrent() {
	if l.current == nil {
		return
	}
	if err := l.current.Abandon(); err != nil {
		l.current.logger.Debug("close on abandon", "error", err)
	}
}
