package core

import (
	"errors"
)

var (
	// presentation
	ErrSwapchainOutOfDate   = errors.New("swapchain out of date")
	ErrSwapchainSuboptimal  = errors.New("swapchain suboptimal")
	ErrSwapchainUnsupported = errors.New("surface does not support any usable swapchain configuration")

	// device setup
	ErrNoSuitableDevice      = errors.New("no physical device satisfies the renderer requirements")
	ErrNoSuitableMemoryType  = errors.New("no memory type satisfies the requested properties")
	ErrNoDepthFormat         = errors.New("no supported depth format")
	ErrValidationUnavailable = errors.New("validation layers requested but not available")
	ErrPushConstantsTooLarge = errors.New("push constant block exceeds the device limit")
	ErrLinearBlitUnsupported = errors.New("texture format does not support linear blitting")

	// resources
	ErrTextureCapacityExceeded = errors.New("texture registry is full")
	ErrTextureSlotOutOfRange   = errors.New("texture slot out of range")
	ErrTextureSlotOccupied     = errors.New("texture slot already populated")
	ErrInvalidHandle           = errors.New("invalid or stale handle")
	ErrEmptyMesh               = errors.New("mesh has no triangles")
	ErrEmptyUpload             = errors.New("upload of zero bytes")

	// configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	ErrUnknown = errors.New("unknown")
)
