package effectchain

import "github.com/cwbudde/algo-rack/internal/testutil"

const testSampleRate = 44100.0

func testCtx() Context {
	return Context{SampleRate: testSampleRate, MaxBlockSize: 256}
}

// stubRuntime is a minimal Runtime implementation for testing.
type stubRuntime struct {
	configureErr   error
	configureCalls int
	processCalls   int
	resetCalls     int
	lastCtx        Context
	lastParams     Params
}

func (s *stubRuntime) Configure(ctx Context, params Params) error {
	s.configureCalls++
	s.lastCtx = ctx
	s.lastParams = params

	return s.configureErr
}

func (s *stubRuntime) Process(_ []float64) {
	s.processCalls++
}

func (s *stubRuntime) Reset() {
	s.resetCalls++
}

// addRuntime adds a constant to every sample.
type addRuntime struct {
	value float64
}

func (a *addRuntime) Configure(_ Context, params Params) error {
	a.value = params.GetNum("value", 0)

	return nil
}

func (a *addRuntime) Process(block []float64) {
	for i := range block {
		block[i] += a.value
	}
}

func testRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister("stub", func(_ Context) (Runtime, error) { return &stubRuntime{}, nil })
	r.MustRegister("add", func(_ Context) (Runtime, error) { return &addRuntime{}, nil })

	return r
}

func ones(n int) []float64 {
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = 1
	}

	return buf
}

func sine(n int, freq float64) []float64 {
	return testutil.Sine(freq, testSampleRate, 0.5, n)
}
