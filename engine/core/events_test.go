package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFireDispatchesInOrder(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()

	var got []int
	EventRegister(EVENT_CODE_RESIZED, func(ctx EventContext) {
		ev := ctx.Data.(*ResizeEvent)
		got = append(got, int(ev.Width))
	})
	EventRegister(EVENT_CODE_RESIZED, func(ctx EventContext) {
		got = append(got, -1)
	})

	handled := EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &ResizeEvent{Width: 640, Height: 480}})
	assert.True(t, handled)
	assert.Equal(t, []int{640, -1}, got)

	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_MOUSE_WHEEL}))
}

func TestInputProcessKeyFiresOnChange(t *testing.T) {
	require.True(t, EventSystemInitialize())
	defer EventSystemShutdown()
	require.NoError(t, InputInitialize())
	defer InputShutdown()

	pressed := 0
	EventRegister(EVENT_CODE_KEY_PRESSED, func(ctx EventContext) { pressed++ })

	require.NoError(t, InputProcessKey(KEY_ESCAPE, true))
	require.NoError(t, InputProcessKey(KEY_ESCAPE, true))
	assert.Equal(t, 1, pressed)
	assert.True(t, InputIsKeyDown(KEY_ESCAPE))

	require.NoError(t, InputProcessKey(KEY_ESCAPE, false))
	assert.True(t, InputIsKeyUp(KEY_ESCAPE))
}

func TestMetricsAverage(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < AVG_COUNT+5; i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)

	for i := 0; i < 100; i++ {
		m.Update(0.020)
	}
	fps, avg := m.Frame()
	assert.InDelta(t, 20.0, avg, 1e-9)
	assert.Greater(t, fps, 0.0)
}
