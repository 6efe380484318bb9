package game

import (
	"sync"
	"time"
)

// QuestionTimer drives one question's countdown. It emits onTick once per
// interval for at most the configured number of ticks, then exits. The owner
// decides what a tick means; the timer itself holds no game state.
//
// Stop is idempotent and safe to call from any goroutine, including from
// inside an onTick callback. A tick already in flight when Stop is called may
// still be delivered, so tick handlers must tolerate going stale.
type QuestionTimer struct {
	interval time.Duration
	ticks    int
	onTick   func()

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewQuestionTimer(interval time.Duration, ticks int, onTick func()) *QuestionTimer {
	return &QuestionTimer{
		interval: interval,
		ticks:    ticks,
		onTick:   onTick,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the tick loop. Call at most once.
func (t *QuestionTimer) Start() {
	go t.run()
}

func (t *QuestionTimer) run() {
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for i := 0; i < t.ticks; i++ {
		select {
		case <-ticker.C:
			t.onTick()
		case <-t.stop:
			return
		}
	}
}

// Stop cancels the countdown. Safe to call multiple times and after the
// timer has already run out.
func (t *QuestionTimer) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Done reports when the tick loop has exited; used by tests.
func (t *QuestionTimer) Done() <-chan struct{} {
	return t.done
}
