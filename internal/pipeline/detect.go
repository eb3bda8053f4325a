package pipeline

import "strings"

type DetectResult struct {
	IsReturnList bool
	Score        float64
	Reason       string
}

// DefaultReturnKeywords are matched against lower-cased subject and body.
var DefaultReturnKeywords = []string{"iade", "return", "barkod", "eksik"}

// DetectReturnList scores a mail as carrying an expected-returns list.
// Keywords in the subject weigh more than in the body; an importable
// attachment or a body table with a barcode header is the strongest
// signal. Layout and signature tables count for nothing.
func DetectReturnList(subject, text, html string, attachmentNames []string, keywords []string) DetectResult {
	if len(keywords) == 0 {
		keywords = DefaultReturnKeywords
	}
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)
	html = strings.ToLower(html)

	score := 0.0
	for _, kw := range keywords {
		if strings.Contains(subject, kw) {
			score += 0.3
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	for _, name := range attachmentNames {
		if hasImportableExt(name) {
			score += 0.35
			break
		}
	}

	if HasListTable(html) {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}

	ok := score >= 0.45
	reason := "rules_negative"
	if ok {
		reason = "rules_positive"
	}
	return DetectResult{IsReturnList: ok, Score: score, Reason: reason}
}

func hasImportableExt(name string) bool {
	ln := strings.ToLower(strings.TrimSpace(name))
	for _, ext := range []string{".xlsx", ".xlsm", ".xls", ".csv", ".pdf", ".htm", ".html"} {
		if strings.HasSuffix(ln, ext) {
			return true
		}
	}
	return false
}
