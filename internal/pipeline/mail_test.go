package pipeline

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestReadMail(t *testing.T) {
	attachment := base64.StdEncoding.EncodeToString([]byte("BARKOD;ISIM\n0012345678;Ali\n"))
	raw := strings.Join([]string{
		"From: depo@example.com",
		"To: iade@example.com",
		"Subject: Iade listesi",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="XX"`,
		"",
		"--XX",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<html><body><table><tr><th>Barkod</th></tr><tr><td>998877</td></tr></table></body></html>",
		"--XX",
		`Content-Type: text/csv; name="liste.csv"`,
		`Content-Disposition: attachment; filename="liste.csv"`,
		"Content-Transfer-Encoding: base64",
		"",
		attachment,
		"--XX",
		`Content-Type: image/png; name="logo.png"`,
		`Content-Disposition: attachment; filename="logo.png"`,
		"Content-Transfer-Encoding: base64",
		"",
		base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'}),
		"--XX--",
		"",
	}, "\r\n")

	mail, err := ReadMail([]byte(raw))
	if err != nil {
		t.Fatalf("ReadMail: %v", err)
	}
	if mail.Subject != "Iade listesi" {
		t.Fatalf("subject=%q", mail.Subject)
	}
	if len(mail.AttachmentNames) != 2 {
		t.Fatalf("attachments=%v", mail.AttachmentNames)
	}
	if len(mail.Files) != 2 {
		t.Fatalf("files=%d", len(mail.Files))
	}

	var codes []string
	for _, f := range mail.Files {
		parsed, err := ExtractRows(f)
		if err != nil {
			t.Fatalf("%s: %v", f.Name, err)
		}
		for _, r := range parsed.Rows {
			codes = append(codes, r.Barcode)
		}
	}
	if len(codes) != 2 || codes[0] != "12345678" || codes[1] != "998877" {
		t.Fatalf("codes=%v", codes)
	}
}
