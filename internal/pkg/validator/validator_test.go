package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "01-01-2023", "2023/01/01", "yesterday", ""}
	for _, date := range valid {
		if _, ok := IsValidDate(date); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", date)
		}
	}
	for _, date := range invalid {
		if _, ok := IsValidDate(date); ok {
			t.Errorf("IsValidDate(%q) = true, want false", date)
		}
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "fromDate", Message: "fromDate is required"},
		{Field: "toDate", Message: "toDate is required"},
	}
	if errs.Error() == "" {
		t.Error("Error() returned empty string")
	}
	m := errs.ToMap()
	if m["fromDate"] != "fromDate is required" {
		t.Errorf("ToMap()[fromDate] = %q", m["fromDate"])
	}
	if len(m) != 2 {
		t.Errorf("ToMap() has %d entries, want 2", len(m))
	}
}
