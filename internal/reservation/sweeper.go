package reservation

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically evicts expired holds from a ledger.
type Sweeper struct {
	cron     *cron.Cron
	ledger   *Ledger
	interval time.Duration
	onEvict  func(Hold)
}

// NewSweeper creates a sweeper for ledger. onEvict, if set, is called once per
// evicted hold after each sweep.
func NewSweeper(ledger *Ledger, interval time.Duration, onEvict func(Hold)) *Sweeper {
	if interval < time.Second {
		interval = 60 * time.Second
	}
	return &Sweeper{
		cron:     cron.New(cron.WithSeconds()),
		ledger:   ledger,
		interval: interval,
		onEvict:  onEvict,
	}
}

// Start schedules the sweep and begins running it in the background.
func (s *Sweeper) Start() error {
	log.Printf("Starting hold sweeper (every %s)...", s.interval)

	if _, err := s.cron.AddFunc("@every "+s.interval.String(), func() {
		s.RunOnce()
	}); err != nil {
		return fmt.Errorf("scheduling hold sweep: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	log.Println("Stopping hold sweeper...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Hold sweeper stopped")
}

// RunOnce performs a single sweep and returns the number of holds evicted.
func (s *Sweeper) RunOnce() int {
	evicted := s.ledger.Sweep()
	if len(evicted) == 0 {
		return 0
	}

	log.Printf("Swept %d expired holds", len(evicted))
	if s.onEvict != nil {
		for _, h := range evicted {
			s.onEvict(h)
		}
	}
	return len(evicted)
}
