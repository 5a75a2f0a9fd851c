package router

import "errors"

var (
	ErrUnknownSelector = errors.New("unknown selector")
	ErrSelectorExists  = errors.New("selector already mapped")
	ErrUnknownModule   = errors.New("no module deployed at address")
	ErrBadArguments    = errors.New("bad call arguments")
	ErrInvalidCut      = errors.New("invalid cut")
)
