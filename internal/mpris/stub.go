//go:build !linux

package mpris

import "github.com/rs/zerolog"

// Adapter does nothing outside Linux.
type Adapter struct{}

func New(Controller, zerolog.Logger) (*Adapter, error) { return &Adapter{}, nil }

func (*Adapter) Close() error { return nil }
