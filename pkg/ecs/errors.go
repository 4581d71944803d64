package ecs

import "github.com/rotisserie/eris"

var (
	// ErrComponentNotRegistered is returned when a component type is used before it is registered
	// with the world.
	ErrComponentNotRegistered = eris.New("component is not registered")

	// ErrComponentLimit is returned when registering more component types than the world allows.
	ErrComponentLimit = eris.New("component type limit reached")

	// ErrContextLimit is returned when every context id of the world is in use.
	ErrContextLimit = eris.New("context limit reached")

	// ErrInvalidConfig is returned when the engine configuration fails validation.
	ErrInvalidConfig = eris.New("invalid config")
)
