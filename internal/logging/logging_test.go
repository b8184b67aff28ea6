package logging

import "testing"

func TestNewWithLevel(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"DEBUG", true, true},
		{" info ", false, true},
		{"warn", false, false},
		{"error", false, false},
		{"", false, true},
		{"chatty", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := NewWithLevel(tt.level)
			core := l.Desugar().Core()
			if got := core.Enabled(-1); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := core.Enabled(0); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	if OrNop(&Logger{}).SugaredLogger == nil {
		t.Fatal("OrNop with empty logger has no sugared logger")
	}

	l := NewNop()
	if OrNop(l) != l {
		t.Error("OrNop should return a usable logger unchanged")
	}

	var nilLogger *Logger
	nilLogger.Sync()
}
