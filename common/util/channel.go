package util

func EmptyChannel[T interface{}](ch chan T) {
	for len(ch) > 0 {
		<-ch
	}
}

// Signal replaces whatever is buffered in ch with v. On a channel of capacity one this
// coalesces any number of wakeups into a single pending one.
func Signal[T interface{}](ch chan T, v T) {
	EmptyChannel(ch)
	select {
	case ch <- v:
	default:
	}
}
