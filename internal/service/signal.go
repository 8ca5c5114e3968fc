// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

const (
	altTextSignal = syscall.SIGUSR1
	stateSignal   = syscall.SIGUSR2
)

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// HandleSignals toggles the alternative text on SIGUSR1 and logs the current navigation state
// on SIGUSR2.
func (s *Service) HandleSignals(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case altTextSignal:
				s.displayAltLock.Lock()
				s.displayAltText = !s.displayAltText
				s.displayAltLock.Unlock()
				s.printState(ctx)
			case stateSignal:
				status := s.Status()
				tplCtx := s.presenter.BuildContext(status)
				s.logger.Info("current navigation state", slog.String("state", tplCtx.State),
					slog.String("route", tplCtx.Route), slog.Int("remaining", tplCtx.Remaining),
					slog.Int("total", tplCtx.Total), slog.Float64("distance", tplCtx.Direction.Distance),
					slog.Bool("aligned", s.aligner.HasAligned()))
			}
		}
	}
}
