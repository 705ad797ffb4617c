package media

import (
	"bytes"
	"reflect"
	"testing"
)

func TestParseShowinfoTimes(t *testing.T) {
	stderr := `[Parsed_showinfo_1 @ 0x5618] n:   0 pts:  25600 pts_time:10.24    pos: 123 fmt:yuv420p
[Parsed_showinfo_1 @ 0x5618] n:   1 pts:  51200 pts_time:20.5     pos: 456 fmt:yuv420p
frame=    2 fps=0.0 q=-0.0 size=N/A
[Parsed_showinfo_1 @ 0x5618] n:   2 pts:  76800 pts_time:30 pos: 789`

	got := parseShowinfoTimes(stderr)
	want := []float64{10.24, 20.5, 30}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseShowinfoTimes = %v, want %v", got, want)
	}
}

func TestParseShowinfoTimes_NoMatches(t *testing.T) {
	if got := parseShowinfoTimes("frame=1 fps=0.0\nnothing here"); len(got) != 0 {
		t.Errorf("expected no timestamps, got %v", got)
	}
}

func TestBuildIntervals(t *testing.T) {
	tests := []struct {
		name       string
		boundaries []float64
		duration   float64
		want       []Interval
	}{
		{
			name:       "two cuts with known duration",
			boundaries: []float64{10, 20},
			duration:   30,
			want:       []Interval{{0, 10}, {10, 20}, {20, 30}},
		},
		{
			name:       "no cuts, known duration is one full shot",
			boundaries: nil,
			duration:   30,
			want:       []Interval{{0, 30}},
		},
		{
			name:       "no cuts, unknown duration yields zero shots",
			boundaries: nil,
			duration:   0,
			want:       nil,
		},
		{
			name:       "unknown duration drops open tail",
			boundaries: []float64{10, 20},
			duration:   0,
			want:       []Interval{{0, 10}, {10, 20}},
		},
		{
			name:       "boundaries past duration ignored",
			boundaries: []float64{10, 45},
			duration:   30,
			want:       []Interval{{0, 10}, {10, 30}},
		},
		{
			name:       "unsorted boundaries are ordered",
			boundaries: []float64{20, 10},
			duration:   30,
			want:       []Interval{{0, 10}, {10, 20}, {20, 30}},
		},
		{
			name:       "duplicate boundaries deduped",
			boundaries: []float64{10, 10.0005, 20},
			duration:   30,
			want:       []Interval{{0, 10}, {10, 20}, {20, 30}},
		},
		{
			name:       "zero and negative boundaries ignored",
			boundaries: []float64{0, -5, 15},
			duration:   30,
			want:       []Interval{{0, 15}, {15, 30}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildIntervals(tt.boundaries, tt.duration)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("buildIntervals(%v, %v) = %v, want %v", tt.boundaries, tt.duration, got, tt.want)
			}
		})
	}
}

func TestBuildIntervals_Invariants(t *testing.T) {
	got := buildIntervals([]float64{3.5, 1.2, 9.9, 7.7}, 12)
	for i, iv := range got {
		if iv.EndS <= iv.StartS {
			t.Errorf("interval %d: end %v not after start %v", i, iv.EndS, iv.StartS)
		}
		if i > 0 && iv.StartS != got[i-1].EndS {
			t.Errorf("interval %d: not contiguous with previous (%v != %v)", i, iv.StartS, got[i-1].EndS)
		}
	}
}

func TestInterval_Midpoint(t *testing.T) {
	tests := []struct {
		iv   Interval
		want float64
	}{
		{Interval{0, 10}, 5.0},
		{Interval{10, 20}, 15.0},
		{Interval{1, 2}, 1.5},
	}
	for _, tt := range tests {
		if got := tt.iv.Midpoint(); got != tt.want {
			t.Errorf("Midpoint(%v) = %v, want %v", tt.iv, got, tt.want)
		}
	}
}

func TestLimitedWriter_KeepsOnlyTail(t *testing.T) {
	lw := &limitedWriter{w: &bytes.Buffer{}, limit: 10}
	lw.Write([]byte("hello"))
	if lw.w.String() != "hello" {
		t.Errorf("after short write got %q", lw.w.String())
	}

	lw.Write([]byte(" world of test data"))
	got := lw.w.String()
	if len(got) > 10 {
		t.Errorf("buffer length %d exceeds limit 10", len(got))
	}
	if got != " test data" {
		t.Errorf("after overflow got %q, want %q", got, " test data")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "...world"},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestResolveBinary_PreferredNotFound(t *testing.T) {
	if _, err := resolveBinary("/nonexistent/ffmpeg999", "ffmpeg"); err == nil {
		t.Fatal("expected error for nonexistent binary")
	}
}
