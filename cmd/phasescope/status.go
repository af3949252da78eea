package main

import (
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog"
)

// desktopStatus reports visualizer status with desktop notifications once
// the tray has handed over to the render window.
type desktopStatus struct {
	log zerolog.Logger
}

func (s *desktopStatus) SetIdle() {
	s.log.Debug().Msg("Visualizer idle")
}

func (s *desktopStatus) SetRunning() {
	s.log.Debug().Msg("Visualizer running")
}

func (s *desktopStatus) SetError() {
	if err := zenity.Notify("The visualizer stopped because of an error. See the log for details.",
		zenity.Title("Phase Scope")); err != nil {
		s.log.Error().Err(err).Msg("Failed to show notification")
	}
}
