package registry

// Default is the process-wide registry filled by Register and
// MustRegister from package init functions. Callers build it once at
// startup and then pass it explicitly to the runner.
var Default = New()

// Register adds fn to Default.
func Register(name string, fn Func, opts ...Option) error {
	return Default.Register(name, fn, opts...)
}

// MustRegister adds fn to Default and panics on a duplicate or invalid
// registration, so conflicts fail the process before any run cycle.
func MustRegister(name string, fn Func, opts ...Option) {
	if err := Default.Register(name, fn, opts...); err != nil {
		panic(err)
	}
}
