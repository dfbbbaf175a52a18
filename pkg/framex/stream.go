package framex

// Stream yields decoded frames from a transport. Implementations block in
// Next until a frame arrives, the stream ends cleanly (io.EOF), or the
// transport fails (any other error).
type Stream interface {
	Next() (Frame, error)
	Close() error
}
