package main

import (
	"context"
	"log"
	"sync"
	"time"
)

// WaitResult tells how a pacing wait ended.
type WaitResult int

const (
	WaitElapsed WaitResult = iota
	WaitInterrupted
)

// waitWithInterrupt sleeps for d unless a signal arrives first. A nil or
// closed signal channel can never interrupt. The only error is ctx's.
func waitWithInterrupt(ctx context.Context, d time.Duration, signals <-chan struct{}) (WaitResult, error) {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return WaitElapsed, ctx.Err()
		case _, ok := <-signals:
			if ok {
				return WaitInterrupted, nil
			}
			return WaitElapsed, nil
		default:
			return WaitElapsed, nil
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return WaitElapsed, ctx.Err()
		case _, ok := <-signals:
			if ok {
				return WaitInterrupted, nil
			}
			signals = nil // console gone, sit out the delay
		case <-timer.C:
			return WaitElapsed, nil
		}
	}
}

// Pacer spaces out agent turns so a human can follow the game. A signal
// during the delay pauses the game until the next signal. With
// AutoContinue off every turn waits for a signal. Once the signal source is
// closed the game runs on without waiting.
type Pacer struct {
	Delay        time.Duration
	AutoContinue bool
	Signals      <-chan struct{}
	Prompt       func(msg string) // optional, shows pause hints

	closed sync.Once
}

func (p *Pacer) say(msg string) {
	if p.Prompt != nil {
		p.Prompt(msg)
		return
	}
	log.Print(msg)
}

// Wait blocks until the next turn may start.
func (p *Pacer) Wait(ctx context.Context) error {
	if !p.AutoContinue && p.Signals != nil {
		p.say("[Press Enter to continue]")
		return p.waitForSignal(ctx)
	}
	res, err := waitWithInterrupt(ctx, p.Delay, p.Signals)
	if err != nil {
		return err
	}
	if res == WaitInterrupted {
		p.say("[Paused. Press Enter to resume]")
		if err := p.waitForSignal(ctx); err != nil {
			return err
		}
		p.say("[Resumed]")
	}
	return nil
}

func (p *Pacer) waitForSignal(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-p.Signals:
		if !ok {
			p.closed.Do(func() { log.Print("Pacer: console closed, continuing without pauses") })
		}
		return nil
	}
}
