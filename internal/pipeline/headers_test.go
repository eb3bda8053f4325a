package pipeline

import "testing"

func TestHeaderMapAliasPriority(t *testing.T) {
	hm := NewHeaderMap([]string{"ALICI", "Barkod", "Barcode", "Alıcı İsim"})

	row, ok := hm.MapRow([]string{"Kısa Ad", "111111", "222222", "Tam Ad"})
	if !ok {
		t.Fatal("expected barcode")
	}
	if row.Barcode != "222222" {
		t.Fatalf("barcode=%q, BARCODE alias must win", row.Barcode)
	}
	if row.Name != "Tam Ad" {
		t.Fatalf("name=%q, ISIM-family alias order must win", row.Name)
	}
}

func TestHeaderMapFirstNonEmptyAliasWins(t *testing.T) {
	hm := NewHeaderMap([]string{"BARCODE", "BARKOD_NO"})
	row, ok := hm.MapRow([]string{"", "0042"})
	if !ok || row.Barcode != "42" {
		t.Fatalf("row=%+v ok=%v", row, ok)
	}
}

func TestHeaderMapFuzzyBarcodeHeader(t *testing.T) {
	hm := NewHeaderMap([]string{"BarkodNo", "Isim"})
	if !hm.Matched(FieldBarcode) {
		t.Fatal("expected fuzzy barcode header")
	}
	row, ok := hm.MapRow([]string{"777888", "Can"})
	if !ok || row.Barcode != "777888" || row.Name != "Can" {
		t.Fatalf("row=%+v", row)
	}
}

func TestHeaderMapDigitFallbackSkipsPhone(t *testing.T) {
	hm := NewHeaderMap([]string{"Telefon", "Açıklama"})
	if hm.Matched(FieldBarcode) {
		t.Fatal("no barcode header expected")
	}
	row, ok := hm.MapRow([]string{"05321234567", "gönderi 9876543 iade"})
	if !ok || row.Barcode != "9876543" {
		t.Fatalf("row=%+v", row)
	}
	if row.Phone != "05321234567" {
		t.Fatalf("phone=%q", row.Phone)
	}
}

func TestHeaderMapNoBarcode(t *testing.T) {
	hm := NewHeaderMap([]string{"Adres", "Not"})
	if hm.Recognized() {
		t.Fatal("headers should not be recognized")
	}
	if _, ok := hm.MapRow([]string{"Kadıköy", "12345"}); ok {
		t.Fatal("short digit token must not become a barcode")
	}
}
