package core

import "sync"

type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = iota + 1
	// Data: *KeyEvent
	EVENT_CODE_KEY_PRESSED
	// Data: *KeyEvent
	EVENT_CODE_KEY_RELEASED
	// Data: *MouseEvent
	EVENT_CODE_BUTTON_PRESSED
	// Data: *MouseEvent
	EVENT_CODE_BUTTON_RELEASED
	// Data: *MouseEvent
	EVENT_CODE_MOUSE_MOVED
	// Data: *MouseEvent
	EVENT_CODE_MOUSE_WHEEL
	// Framebuffer size changed. Data: *ResizeEvent
	EVENT_CODE_RESIZED
	// An asset file changed on disk. Data: *AssetChangedEvent
	EVENT_CODE_ASSET_CHANGED

	MAX_EVENT_CODE
)

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type ResizeEvent struct {
	Width  uint32
	Height uint32
}

type AssetChangedEvent struct {
	ID   string
	Path string
	Kind string
}

type FnOnEvent func(context EventContext)

type eventSystemState struct {
	mu         sync.RWMutex
	registered [MAX_EVENT_CODE][]FnOnEvent
}

var eventState *eventSystemState

func EventSystemInitialize() bool {
	if eventState != nil {
		return false
	}
	eventState = &eventSystemState{}
	return true
}

func EventSystemShutdown() error {
	if eventState == nil {
		return nil
	}
	eventState.mu.Lock()
	for i := range eventState.registered {
		eventState.registered[i] = nil
	}
	eventState.mu.Unlock()
	eventState = nil
	return nil
}

// EventRegister adds a listener for code. Listeners run synchronously on
// the goroutine that fires the event, in registration order.
func EventRegister(code EventCode, onEvent FnOnEvent) bool {
	if eventState == nil || code >= MAX_EVENT_CODE || onEvent == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	eventState.registered[code] = append(eventState.registered[code], onEvent)
	return true
}

// EventFire dispatches context to the listeners of context.Type and reports
// whether any listener was registered.
func EventFire(context EventContext) bool {
	if eventState == nil || context.Type >= MAX_EVENT_CODE {
		return false
	}
	eventState.mu.RLock()
	listeners := append([]FnOnEvent(nil), eventState.registered[context.Type]...)
	eventState.mu.RUnlock()

	for _, fn := range listeners {
		fn(context)
	}
	return len(listeners) > 0
}
