package pipeline

import (
	"bytes"
	"strings"

	"github.com/jhillyerd/enmime"
)

// MailContent is the importable part of one raw RFC 5322 message.
type MailContent struct {
	Subject         string
	From            string
	Text            string
	HTML            string
	AttachmentNames []string
	Files           []InputFile
}

// ReadMail parses a raw message. Importable attachments become input
// files; an HTML body is imported as one more file only when it holds a
// table with a barcode header, and then only that kind of table is read.
func ReadMail(raw []byte) (MailContent, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return MailContent{}, err
	}

	out := MailContent{
		Subject: env.GetHeader("Subject"),
		From:    env.GetHeader("From"),
		Text:    env.Text,
		HTML:    env.HTML,
	}

	parts := append([]*enmime.Part{}, env.Attachments...)
	parts = append(parts, env.Inlines...)
	for _, att := range parts {
		name := strings.TrimSpace(att.FileName)
		if name == "" {
			name = "attachment"
		}
		out.AttachmentNames = append(out.AttachmentNames, name)

		file := InputFile{Name: name, Content: att.Content}
		if !hasImportableExt(name) || !IsImportable(file) {
			continue
		}
		out.Files = append(out.Files, file)
	}

	if HasListTable(env.HTML) {
		out.Files = append(out.Files, InputFile{Name: "body.html", Content: []byte(env.HTML), HeaderRequired: true})
	}
	return out, nil
}
