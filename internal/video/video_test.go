package video

import (
	"math"
	"testing"
)

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"30000/1001", 30000.0 / 1001.0},
		{"25/1", 25},
		{"24", 24},
		{"0/0", 0},
		{"", 0},
		{"abc/1", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseFrameRate(tt.input); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("parseFrameRate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
			 "avg_frame_rate": "25/1", "r_frame_rate": "25/1", "nb_frames": "250"}
		],
		"format": {"duration": "10.000000"}
	}`)

	meta, err := parseProbeOutput(data)
	if err != nil {
		t.Fatalf("parseProbeOutput error: %v", err)
	}
	if meta.Width != 1920 || meta.Height != 1080 {
		t.Errorf("dimensions = %dx%d", meta.Width, meta.Height)
	}
	if meta.FPS != 25 || meta.FrameCount != 250 {
		t.Errorf("fps=%v frames=%d", meta.FPS, meta.FrameCount)
	}
	if meta.Duration() != 10 {
		t.Errorf("Duration() = %v, want 10", meta.Duration())
	}
	if meta.Codec != "h264" {
		t.Errorf("codec = %q", meta.Codec)
	}
}

func TestParseProbeOutputDerivesFrameCount(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "video", "width": 640, "height": 360,
			 "avg_frame_rate": "0/0", "r_frame_rate": "30/1"}
		],
		"format": {"duration": "4.5"}
	}`)

	meta, err := parseProbeOutput(data)
	if err != nil {
		t.Fatalf("parseProbeOutput error: %v", err)
	}
	if meta.FPS != 30 {
		t.Errorf("fps = %v, want 30 from r_frame_rate", meta.FPS)
	}
	if meta.FrameCount != 135 {
		t.Errorf("frame count = %d, want 135", meta.FrameCount)
	}
}

func TestParseProbeOutputErrors(t *testing.T) {
	if _, err := parseProbeOutput([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := parseProbeOutput([]byte(`{"streams":[{"codec_type":"audio"}]}`)); err == nil {
		t.Error("expected error when no video stream exists")
	}
}

func TestMetadataDurationWithoutRate(t *testing.T) {
	if d := (Metadata{FrameCount: 100}).Duration(); d != 0 {
		t.Errorf("Duration() = %v, want 0 when fps unknown", d)
	}
}

func TestIsVideoFile(t *testing.T) {
	for _, p := range []string{"a.mp4", "B.MKV", "dir/c.webm"} {
		if !IsVideoFile(p) {
			t.Errorf("IsVideoFile(%q) = false", p)
		}
	}
	for _, p := range []string{"a.mp3", "b.srt", "noext"} {
		if IsVideoFile(p) {
			t.Errorf("IsVideoFile(%q) = true", p)
		}
	}
}
