package power

// FakeController records power actions for test assertions.
type FakeController struct {
	PowerOffs int
	Restarts  int

	// Err, if set, is returned by both actions.
	Err error
}

// PowerOff records a power-off request.
func (f *FakeController) PowerOff() error {
	f.PowerOffs++
	return f.Err
}

// Restart records a restart request.
func (f *FakeController) Restart() error {
	f.Restarts++
	return f.Err
}
