package crawler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/readyscan/internal/model"
)

const jsonLDMediaType = "application/ld+json"

// BlockResult is the outcome of decoding one structured-data block.
// Exactly one of Record and Err is set.
type BlockResult struct {
	Record *model.StructuredDataRecord
	Err    error
}

// ExtractStructuredData scans doc for JSON-LD script blocks and microdata
// annotations. Every JSON-LD block yields one BlockResult in document
// order; a page with microdata items yields one more result holding all of
// them.
func ExtractStructuredData(doc *goquery.Document, pageURL string) []BlockResult {
	var results []BlockResult

	doc.Find("script[type]").Each(func(i int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		if !isJSONLD(typ) {
			return
		}
		data, err := decodeJSONLD(s.Text())
		if err != nil {
			results = append(results, BlockResult{Err: fmt.Errorf("JSON-LD block %d on %s: %w", i, pageURL, err)})
			return
		}
		results = append(results, BlockResult{Record: &model.StructuredDataRecord{
			URL:  pageURL,
			Kind: model.KindEmbedded,
			Type: model.TypeJSONLD,
			Data: data,
		}})
	})

	var items []model.MicrodataItem
	doc.Find("[itemscope]").Each(func(_ int, s *goquery.Selection) {
		itemType, _ := s.Attr("itemtype")
		itemType = strings.TrimSpace(itemType)
		if itemType == "" {
			return
		}
		items = append(items, model.MicrodataItem{Type: itemType, URL: pageURL})
	})
	if len(items) > 0 {
		results = append(results, BlockResult{Record: &model.StructuredDataRecord{
			URL:  pageURL,
			Kind: model.KindAttribute,
			Type: model.TypeMicrodata,
			Data: items,
		}})
	}

	return results
}

func isJSONLD(typ string) bool {
	mediaType, _, err := mime.ParseMediaType(typ)
	return err == nil && mediaType == jsonLDMediaType
}

// errTrailingData is returned for a block holding more than one JSON value.
var errTrailingData = errors.New("unexpected data after JSON value")

// decodeJSONLD decodes exactly one JSON value. Numbers keep their literal
// form so large identifiers survive a round trip.
func decodeJSONLD(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return v, nil
}
