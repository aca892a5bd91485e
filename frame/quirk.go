package frame

// HasClosePrefix reports whether data begins with the two-character
// prefix "44". Some transports re-enter a just-sent 44xx close code's
// text back into the receive pipeline as if it were an inbound message;
// the receive loop drops anything matching this prefix before attempting
// to decode it, rather than tripping over it as a malformed frame.
func HasClosePrefix(data []byte) bool {
	return len(data) >= 2 && data[0] == '4' && data[1] == '4'
}
