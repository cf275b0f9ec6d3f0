package includer

import (
	"strings"
	"testing"
)

func TestClipBracketing(t *testing.T) {
	content := `<html><body>
preview scaffolding
<!--#clip-before -->
<div class="widget">reusable part</div>
<!--#clip-after -->
more scaffolding
</body></html>`

	got, conds := clipContent(content, Options{}.withDefaults())
	if len(conds) != 0 {
		t.Errorf("clipContent() conditions = %v, want none", conds)
	}
	if !strings.Contains(got, "reusable part") {
		t.Errorf("clipped content lost the interior: %q", got)
	}
	if strings.Contains(got, "scaffolding") {
		t.Errorf("clipped content kept the exterior: %q", got)
	}
}

func TestClipExcision(t *testing.T) {
	content := `keep1<!--#clip-between -->drop1<!--#end-clip-between -->keep2<!--#clip-between -->drop2<!--#end-clip-between -->keep3`

	got, conds := clipContent(content, Options{}.withDefaults())
	if len(conds) != 0 {
		t.Errorf("clipContent() conditions = %v, want none", conds)
	}
	if got != "keep1keep2keep3" {
		t.Errorf("clipContent() = %q, want %q", got, "keep1keep2keep3")
	}
}

func TestClipBracketingThenExcision(t *testing.T) {
	content := `out<!--#clip-before -->a<!--#clip-between -->b<!--#end-clip-between -->c<!--#clip-after -->out`

	got, conds := clipContent(content, Options{}.withDefaults())
	if len(conds) != 0 {
		t.Errorf("clipContent() conditions = %v, want none", conds)
	}
	if got != "ac" {
		t.Errorf("clipContent() = %q, want %q", got, "ac")
	}
}

func TestClipMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
		frag string
	}{
		{
			name: "clip-before without clip-after",
			text: `a<!--#clip-before -->b`,
			frag: "without matching clip-after",
		},
		{
			name: "clip-after without clip-before",
			text: `a<!--#clip-after -->b`,
			frag: "without preceding clip-before",
		},
		{
			name: "clip-between without end",
			text: `a<!--#clip-between -->b`,
			frag: "without matching end-clip-between",
		},
		{
			name: "end-clip-between without start",
			text: `a<!--#end-clip-between -->b`,
			frag: "without preceding clip-between",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conds := clipContent(tt.text, Options{}.withDefaults())
			if got != tt.text {
				t.Errorf("malformed clip altered content: got %q, want unchanged %q", got, tt.text)
			}
			if len(conds) != 1 {
				t.Fatalf("clipContent() returned %d conditions, want 1", len(conds))
			}
			if conds[0].Kind != InvalidDirective {
				t.Errorf("condition kind = %s, want %s", conds[0].Kind, InvalidDirective)
			}
			if !strings.Contains(conds[0].Message, tt.frag) {
				t.Errorf("condition message %q does not mention %q", conds[0].Message, tt.frag)
			}
		})
	}
}

func TestClipNoMarkers(t *testing.T) {
	content := "plain <b>html</b> with <!-- a regular comment -->"
	got, conds := clipContent(content, Options{}.withDefaults())
	if got != content {
		t.Errorf("clipContent() altered marker-free content")
	}
	if len(conds) != 0 {
		t.Errorf("clipContent() conditions = %v, want none", conds)
	}
}
