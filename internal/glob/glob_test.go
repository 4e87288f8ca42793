package glob

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"*", "contador1", true},
		{"*", "carpeta1/contador2", false},
		{"**", "carpeta1/contador2", true},
		{"carpeta1/*", "carpeta1/contador2", true},
		{"**/contador2", "contador2", true},
		{"**/contador2", "a/b/contador2", true},
		{"contador?", "contador1", true},
		{"contador?", "contador10", false},
		{"contador[12]", "contador2", true},
		{"contador[!12]", "contador2", false},
		{"{read,write}", "write", true},
		{"{read,write}", "open", false},
		{"op={read,w{rite,alk}}", "op=walk", true},
		{"err=*", "err=bad address", true},
		{"path=carpeta1/**", "path=carpeta1/sub/x", true},
		{"a.b", "axb", false},
		{"a+b", "a+b", true},
		{`\*`, "*", true},
		{`\*`, "x", false},
		{"[abc", "[abc", true},
		{"{a,b", "{a,b", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Match(tt.pattern, tt.input)
		if err != nil {
			t.Errorf("Match(%q, %q): %v", tt.pattern, tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.input, got, tt.want)
		}
	}
}

func TestCompileInvalid(t *testing.T) {
	if _, err := Compile("[z-a]"); err == nil {
		t.Fatal("expected error for reversed range")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("MustCompile did not panic")
		}
	}()
	MustCompile("[z-a]")
}

func TestPatternString(t *testing.T) {
	if got := MustCompile("err=*").String(); got != "err=*" {
		t.Fatalf("String() = %q", got)
	}
}
