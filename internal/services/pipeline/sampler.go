package pipeline

// Sampled reports whether the frame at index is sent to detection for a
// sampling stride of k. Strides below 1 sample every frame.
func Sampled(index, k int) bool {
	if k <= 1 {
		return true
	}
	return index%k == 0
}

// OutputFPS returns the frame rate of the output video. When only sampled
// frames are written the rate drops by the stride, never below 1.
func OutputFPS(sourceFPS float64, k int, keepAll bool) float64 {
	if keepAll || k <= 1 {
		return sourceFPS
	}
	fps := float64(int(sourceFPS) / k)
	if fps < 1 {
		return 1
	}
	return fps
}
