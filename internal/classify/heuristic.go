package classify

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/tradedocs/constants"
)

const (
	filenameHitConfidence = 0.85
	textHitConfidence     = 0.90
)

// keywords are matched case-insensitively. Turkish variants are kept in their
// ASCII spelling as they appear in supplier filenames.
var keywords = []struct {
	docType constants.DocType
	words   []string
}{
	{constants.DocInvoice, []string{"commercial invoice", "proforma invoice", "invoice", "fatura", "ticari fatura"}},
	{constants.DocPackingList, []string{"packing list", "ambalaj listesi", "packing"}},
	{constants.DocCertificate, []string{"oeko-tex", "oekotex", "oeko tex", "gots certificate", "certificate", "sertifika", "iso 9001", "iso 14001"}},
	{constants.DocTestReport, []string{"test report", "test raporu", "laboratory report", "sgs", "bureau veritas", "intertek", "tuv"}},
	{constants.DocSDS, []string{"safety data sheet", "guvenlik bilgi formu", "material safety data", "msds", "sds"}},
	{constants.DocBOM, []string{"bill of material", "material declaration", "malzeme bildirimi", "bom"}},
}

// Heuristic scores each type by keyword hits: +2 for a filename hit, +1 for
// a text hit. The strictly highest score wins.
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Classify(_ context.Context, filename, text string) *Result {
	name := strings.ToLower(filename)
	body := strings.ToLower(text)

	var best *Result
	bestScore := 0
	for _, entry := range keywords {
		score := 0
		conf := 0.0
		for _, w := range entry.words {
			if strings.Contains(name, w) {
				score += 2
				conf = max(conf, filenameHitConfidence)
			}
			if strings.Contains(body, w) {
				score++
				conf = max(conf, textHitConfidence)
			}
		}
		if score > bestScore {
			bestScore = score
			best = &Result{DocType: entry.docType, Confidence: conf, Method: constants.ClassifiedHeuristic}
		}
	}
	return best
}
