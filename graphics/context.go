package graphics

// Context is the window or headless surface the renderer presents to.
type Context interface {
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	// EndFrame presents the frame and processes pending window events.
	EndFrame()
	GetFramebufferSize() (int, int)
	// Time is the time in seconds since the graphics subsystem started.
	Time() float64
}
