package record

import "testing"

func TestNewCaption_RangeValidation(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		wantErr    bool
	}{
		{"zero", 0.0, false},
		{"one", 1.0, false},
		{"middle", 0.8, false},
		{"above one", 1.5, true},
		{"negative", -0.1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCaption("a dog", tt.confidence)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCaption(%v) error = %v, wantErr %v", tt.confidence, err, tt.wantErr)
			}
			if err == nil && c.Confidence != tt.confidence {
				t.Errorf("confidence = %v, want %v (must not be clamped)", c.Confidence, tt.confidence)
			}
		})
	}
}

func TestNewShot(t *testing.T) {
	s, err := NewShot(1, 0.0, 10.0, "frames/v_s001.jpg")
	if err != nil {
		t.Fatalf("NewShot: %v", err)
	}
	if s.ShotID != "s001" {
		t.Errorf("ShotID = %q, want s001", s.ShotID)
	}
	if s.Captions == nil || s.Objects == nil {
		t.Error("captions and objects must be empty slices, not nil")
	}

	if _, err := NewShot(2, 5.0, 5.0, ""); err == nil {
		t.Error("expected error for end == start")
	}
	if _, err := NewShot(2, 5.0, 4.0, ""); err == nil {
		t.Error("expected error for end < start")
	}
	if _, err := NewShot(2, -1.0, 4.0, ""); err == nil {
		t.Error("expected error for negative start")
	}
}

func TestNewShot_RoundsTimes(t *testing.T) {
	s, err := NewShot(3, 1.2345, 6.789, "")
	if err != nil {
		t.Fatalf("NewShot: %v", err)
	}
	if s.StartS != 1.23 {
		t.Errorf("StartS = %v, want 1.23", s.StartS)
	}
	if s.EndS != 6.79 {
		t.Errorf("EndS = %v, want 6.79", s.EndS)
	}
}

func TestFormatShotID(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{1, "s001"},
		{2, "s002"},
		{42, "s042"},
		{999, "s999"},
		{1000, "s1000"},
	}
	for _, tt := range tests {
		if got := FormatShotID(tt.index); got != tt.want {
			t.Errorf("FormatShotID(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestNewWord(t *testing.T) {
	w, err := NewWord("hello", 0.111, 0.555)
	if err != nil {
		t.Fatalf("NewWord: %v", err)
	}
	if w.StartS != 0.11 || w.EndS != 0.56 {
		t.Errorf("rounded word times = (%v, %v), want (0.11, 0.56)", w.StartS, w.EndS)
	}

	// Zero-length words are produced by alignment and are valid.
	if _, err := NewWord("uh", 1.0, 1.0); err != nil {
		t.Errorf("zero-length word should be valid: %v", err)
	}
	if _, err := NewWord("bad", 2.0, 1.0); err == nil {
		t.Error("expected error for end before start")
	}
	if _, err := NewWord("bad", -0.5, 1.0); err == nil {
		t.Error("expected error for negative start")
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.005, 1.0}, // float64 representation of 1.005 is just below
		{2.675, 2.67},
		{10.0, 10.0},
		{3.14159, 3.14},
		{0.999, 1.0},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
