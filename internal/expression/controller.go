package expression

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBlinkInterval = 800 * time.Millisecond
	DefaultIdleDelay     = 3 * time.Second
)

// Observer is told about every state the controller enters. It is called
// with the controller locked and must not call back into it.
type Observer interface {
	ExpressionChanged(state State)
}

type Option func(*Controller)

func WithBlinkInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.blinkInterval = d
		}
	}
}

func WithIdleDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.idleDelay = d
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// WithHardware marks the renderer as a physical display for status reports.
func WithHardware(attached bool) Option {
	return func(c *Controller) {
		c.hardware = attached
	}
}

// Controller owns the display. Only one animation runs at a time; entering
// a state stops the running animation and waits for it to exit before the
// new state renders.
type Controller struct {
	mu            sync.Mutex
	renderer      Renderer
	hardware      bool
	current       State
	gen           uint64 // bumped on every transition; stale idle timers compare against it
	stop          chan struct{}
	done          chan struct{}
	idleTimer     *time.Timer
	blinkInterval time.Duration
	idleDelay     time.Duration
	observers     []Observer
	closed        bool
	logger        *zap.Logger
}

func NewController(renderer Renderer, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		renderer:      renderer,
		current:       Idle,
		blinkInterval: DefaultBlinkInterval,
		idleDelay:     DefaultIdleDelay,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddObserver registers o for future transitions.
func (c *Controller) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Show moves the face to state. Speaking reverts to idle after the idle
// delay unless another Show comes first.
func (c *Controller) Show(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.enter(state)
}

func (c *Controller) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Available reports whether a physical display is attached.
func (c *Controller) Available() bool {
	return c.hardware
}

// Close stops all background work and blanks the display.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.gen++
	c.stopIdleTimer()
	c.stopAnimation()

	if err := c.renderer.Clear(); err != nil {
		c.logger.Warn("failed to clear display", zap.Error(err))
	}
	return c.renderer.Close()
}

// Demo shows every state for hold, then returns to idle.
func (c *Controller) Demo(ctx context.Context, hold time.Duration) error {
	for _, st := range States {
		c.logger.Info("testing expression", zap.String("state", string(st)))
		c.Show(st)
		select {
		case <-ctx.Done():
			c.Show(Idle)
			return ctx.Err()
		case <-time.After(hold):
		}
	}
	c.Show(Idle)
	return nil
}

// enter runs with mu held.
func (c *Controller) enter(state State) {
	if _, err := ParseState(string(state)); err != nil {
		c.logger.Warn("unknown expression, showing idle", zap.String("state", string(state)))
		state = Idle
	}

	c.gen++
	c.stopIdleTimer()
	c.stopAnimation()

	c.current = state
	c.logger.Debug("expression changed", zap.String("state", string(state)))
	for _, o := range c.observers {
		o.ExpressionChanged(state)
	}

	switch state {
	case Thinking:
		c.startAnimation()
	case Speaking:
		c.render(FrameFor(state, EyesOpen))
		gen := c.gen
		c.idleTimer = time.AfterFunc(c.idleDelay, func() { c.revertToIdle(gen) })
	default:
		c.render(FrameFor(state, EyesOpen))
	}
}

func (c *Controller) revertToIdle(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.gen != gen {
		return
	}
	c.idleTimer = nil
	c.enter(Idle)
}

func (c *Controller) stopIdleTimer() {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
}

func (c *Controller) startAnimation() {
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done
	go c.blink(stop, done)
}

// stopAnimation signals the blink loop and waits for it to exit. The loop
// checks stop at every frame boundary, so the wait is at most one render.
func (c *Controller) stopAnimation() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil
}

func (c *Controller) blink(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.blinkInterval)
	defer ticker.Stop()

	eyes := EyesOpen
	for {
		select {
		case <-stop:
			return
		default:
		}

		c.render(FrameFor(Thinking, eyes))
		eyes = eyes.toggle()

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) render(f Frame) {
	if err := c.renderer.Render(f); err != nil {
		c.logger.Warn("failed to render expression",
			zap.String("state", string(f.State)),
			zap.Error(err))
	}
}
