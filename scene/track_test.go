package scene

import "testing"

func TestTrackFrameIndex(t *testing.T) {
	tests := []struct {
		name      string
		numFrames uint16
		loop      bool
		frame     int
		want      uint16
	}{
		{"clamp in range", 10, false, 4, 4},
		{"clamp past end", 10, false, 25, 9},
		{"clamp before start", 10, false, -3, 0},
		{"loop in range", 10, true, 4, 4},
		{"loop wraps", 10, true, 25, 5},
		{"loop wraps negative", 10, true, -3, 7},
		{"empty track", 0, true, 4, 0},
	}
	for _, test := range tests {
		track := Track{NumFrames: test.numFrames, Loop: test.loop}
		if got := track.frameIndex(test.frame); got != test.want {
			t.Errorf("%s: frameIndex(%d) = %d; expected %d",
				test.name, test.frame, got, test.want)
		}
	}
}
