package main

import (
	"github.com/pkg/profile"
	"github.com/rotisserie/eris"
)

type stopper interface {
	Stop()
}

type noProfile struct{}

func (noProfile) Stop() {}

// startProfile starts the named pprof profile, writing it to dir when stopped. An empty mode
// profiles nothing.
func startProfile(mode, dir string) (stopper, error) {
	var kind func(*profile.Profile)
	switch mode {
	case "":
		return noProfile{}, nil
	case "cpu":
		kind = profile.CPUProfile
	case "mem":
		kind = profile.MemProfile
	case "allocs":
		kind = profile.MemProfileAllocs
	case "mutex":
		kind = profile.MutexProfile
	case "trace":
		kind = profile.TraceProfile
	default:
		return nil, eris.Errorf("invalid profile mode: %s (must be 'cpu', 'mem', 'allocs', 'mutex' or 'trace')", mode)
	}
	return profile.Start(kind, profile.ProfilePath(dir), profile.NoShutdownHook, profile.Quiet), nil
}
