package highlight

import (
	"reflect"
	"testing"
)

func TestPatternMatchesDiacriticVariants(t *testing.T) {
	re, err := Pattern("an")
	if err != nil {
		t.Fatalf("Pattern() error = %v", err)
	}
	for _, text := range []string{"an", "Án", "ÂN", "ăn", "ản"} {
		if !re.MatchString(text) {
			t.Fatalf("expected %q to match", text)
		}
	}
	if re.MatchString("en") {
		t.Fatal("did not expect en to match")
	}
}

func TestPatternEscapesMetacharacters(t *testing.T) {
	re, err := Pattern("c++ (v2)")
	if err != nil {
		t.Fatalf("Pattern() error = %v", err)
	}
	if !re.MatchString("learn C++ (v2) today") {
		t.Fatal("expected literal match")
	}
	if re.MatchString("cc (v2)") {
		t.Fatal("metacharacters must not act as operators")
	}
}

func TestBlankPattern(t *testing.T) {
	re, err := Pattern("   ")
	if err != nil || re != nil {
		t.Fatalf("expected nil pattern, got %v %v", re, err)
	}
}

func TestSegments(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		query string
		want  []Segment
	}{
		{
			name:  "single match",
			text:  "Họp dự án tuần này",
			query: "du an",
			want: []Segment{
				{Text: "Họp "},
				{Text: "dự án", Match: true},
				{Text: " tuần này"},
			},
		},
		{
			name:  "repeated matches",
			text:  "Đi đâu đó",
			query: "d",
			want: []Segment{
				{Text: "Đ", Match: true},
				{Text: "i "},
				{Text: "đ", Match: true},
				{Text: "âu "},
				{Text: "đ", Match: true},
				{Text: "ó"},
			},
		},
		{
			name:  "no match",
			text:  "Invoice",
			query: "zz",
			want:  []Segment{{Text: "Invoice"}},
		},
		{
			name:  "blank query",
			text:  "Invoice",
			query: "",
			want:  []Segment{{Text: "Invoice"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segments(tt.text, tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Segments() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	got := Apply("Quarterly Report", "report", func(s string) string { return "<" + s + ">" })
	if got != "Quarterly <Report>" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestFold(t *testing.T) {
	if got := Fold("Đà Nẵng"); got != "da nang" {
		t.Fatalf("Fold() = %q", got)
	}
	if !Contains("Báo cáo Tài chính", "tai chinh") {
		t.Fatal("expected folded containment")
	}
}
