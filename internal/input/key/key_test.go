package key

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		spec string
		want Event
	}{
		{"a", RuneEvent('a', ModNone)},
		{"Enter", Special(KeyEnter, ModNone)},
		{"esc", Special(KeyEscape, ModNone)},
		{"Ctrl+B", RuneEvent('B', ModCtrl)},
		{"Ctrl+Enter", Special(KeyEnter, ModCtrl)},
		{"Ctrl+Shift+Backspace", Special(KeyBackspace, ModCtrl|ModShift)},
		{"Mod+i", RuneEvent('i', ModCtrl)},
		{"<C-b>", RuneEvent('b', ModCtrl)},
		{"<C-S-BS>", Special(KeyBackspace, ModCtrl|ModShift)},
		{"<CR>", Special(KeyEnter, ModNone)},
		{"Shift+Tab", Special(KeyTab, ModShift)},
		{"Alt+Space", RuneEvent(' ', ModAlt)},
		{"+", RuneEvent('+', ModNone)},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := Parse(tt.spec)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.spec, err)
			}
			if !got.Equals(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		spec string
		want error
	}{
		{"", ErrEmptySpec},
		{"  ", ErrEmptySpec},
		{"Hyper+x", ErrInvalidSpec},
		{"Ctrl+", ErrInvalidSpec},
		{"Ctrl+nothing", ErrInvalidSpec},
		{"<X-a>", ErrInvalidSpec},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			if _, err := Parse(tt.spec); !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.spec, err, tt.want)
			}
		})
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{RuneEvent('x', ModNone), "x"},
		{RuneEvent(' ', ModNone), "Space"},
		{Special(KeyTab, ModShift), "Shift+Tab"},
		{Special(KeyBackspace, ModCtrl|ModShift), "Ctrl+Shift+Backspace"},
		{RuneEvent('+', ModCtrl), "Ctrl+Plus"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.ev.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			back, err := Parse(tt.want)
			if err != nil || !back.Equals(tt.ev) {
				t.Errorf("Parse(String()) = %v, %v", back, err)
			}
		})
	}
}

func TestEventIsChar(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want bool
	}{
		{"letter", RuneEvent('a', ModNone), true},
		{"shifted", RuneEvent('A', ModShift), true},
		{"ctrl", RuneEvent('a', ModCtrl), false},
		{"control rune", RuneEvent('\x01', ModNone), false},
		{"enter", Special(KeyEnter, ModNone), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.IsChar(); got != tt.want {
				t.Errorf("IsChar() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModifier(t *testing.T) {
	m := ModNone.With(ModCtrl).With(ModShift)
	if !m.Has(ModCtrl) || !m.Has(ModShift) || m.Has(ModAlt) {
		t.Errorf("With: got %v", m)
	}
	if got := m.Without(ModCtrl); got != ModShift {
		t.Errorf("Without(ModCtrl) = %v, want Shift", got)
	}
	if got := m.String(); got != "Ctrl+Shift" {
		t.Errorf("String() = %q", got)
	}
}

func TestKeyClassification(t *testing.T) {
	if !KeyLeft.IsArrow() || KeyHome.IsArrow() {
		t.Error("IsArrow misclassifies")
	}
	if !KeyHome.IsNavigation() || KeyEnter.IsNavigation() {
		t.Error("IsNavigation misclassifies")
	}
	if got := FromName("PgDn"); got != KeyPageDown {
		t.Errorf("FromName(PgDn) = %v", got)
	}
}

func TestBindings(t *testing.T) {
	b, err := ParseBindings(map[string]string{
		"bold":       "Ctrl+B",
		"insert-row": "Ctrl+Enter",
		"broken":     "Ctrl+",
	})
	if err == nil {
		t.Error("ParseBindings: expected error for broken entry")
	}
	if len(b) != 2 {
		t.Fatalf("len(bindings) = %d, want 2", len(b))
	}

	cmd, ok := b.Lookup(RuneEvent('b', ModCtrl))
	if !ok || cmd != "bold" {
		t.Errorf("Lookup(Ctrl+b) = %q, %v", cmd, ok)
	}
	if _, ok := b.Lookup(Special(KeyEnter, ModNone)); ok {
		t.Error("Lookup(Enter) matched a binding")
	}
}
