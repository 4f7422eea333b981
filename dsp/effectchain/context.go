package effectchain

// DefaultMaxBlockSize is used when Context.MaxBlockSize is unset.
const DefaultMaxBlockSize = 4096

// Context provides environmental information that effect runtimes need.
type Context struct {
	SampleRate float64
	// MaxBlockSize bounds the blocks passed to Process so runtimes can
	// size scratch buffers up front.
	MaxBlockSize int
}

func (c Context) maxBlock() int {
	if c.MaxBlockSize > 0 {
		return c.MaxBlockSize
	}
	return DefaultMaxBlockSize
}
