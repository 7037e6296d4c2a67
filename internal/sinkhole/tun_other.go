//go:build !linux

package sinkhole

import "context"

// TUN is only implemented on Linux
type TUN struct{}

// NewTUN returns a sinkhole whose Establish always fails with ErrUnsupported
func NewTUN(Config, CommandRunner) *TUN {
	return &TUN{}
}

func (t *TUN) Establish(context.Context) error { return ErrUnsupported }

func (t *TUN) Teardown() error { return nil }

func (t *TUN) Active() bool { return false }

func (t *TUN) DroppedPackets() uint64 { return 0 }
