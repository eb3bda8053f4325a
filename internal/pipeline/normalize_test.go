package pipeline

import "testing"

func TestNormalizeBarcode(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "123456", want: "123456"},
		{name: "leading zeros", input: "000123", want: "123"},
		{name: "separators", input: " 12-34 56/78 ", want: "12345678"},
		{name: "letters dropped", input: "TR0012AB34", want: "1234"},
		{name: "all zero", input: "0000", want: ""},
		{name: "empty", input: "", want: ""},
		{name: "no digits", input: "abc-", want: ""},
		{name: "non ascii digits ignored", input: "١٢٣45", want: "45"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeBarcode(tc.input)
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
			if again := NormalizeBarcode(got); again != got {
				t.Fatalf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestNormalizeBarcodeEquivalentForms(t *testing.T) {
	forms := []string{"123-456", "000123456", " 123 456 ", "0-0-123.456"}
	want := NormalizeBarcode(forms[0])
	for _, f := range forms[1:] {
		if got := NormalizeBarcode(f); got != want {
			t.Fatalf("%q -> %q, want %q", f, got, want)
		}
	}
}

func TestNormalizeBarcodes(t *testing.T) {
	got := NormalizeBarcodes([]string{"0012", "12", "", "x", "34"})
	if len(got) != 2 || got[0] != "12" || got[1] != "34" {
		t.Fatalf("got %v", got)
	}
}
