package partition

import (
	"strings"

	"surveyrag/types"
)

const (
	segmentTable = "Table"
	segmentImage = "Image"
)

// ExtractElements splits partitioned segments into text and table elements,
// both in document order. Every table segment becomes one TableElement with
// its HTML rendering. Inline image segments are dropped: images enter the
// pipeline only through LoadImages, which reads the partitioner's image
// output directory.
//
// Consecutive non-table segments are merged into one text element, mirroring
// the composite blocks the partition service produces. Empty input yields
// empty slices, never an error.
func ExtractElements(segments []types.Segment, source string) (texts, tables []types.Element) {
	var buf strings.Builder
	bufPage := 0

	flushText := func() {
		if buf.Len() == 0 {
			return
		}
		texts = append(texts, types.Element{
			Kind:    types.KindText,
			Content: strings.TrimSpace(buf.String()),
			Source:  source,
			Page:    bufPage,
		})
		buf.Reset()
		bufPage = 0
	}

	for _, seg := range segments {
		switch seg.Type {
		case segmentTable:
			flushText()
			content := seg.HTML
			if content == "" {
				// A table without HTML still has to be represented.
				content = seg.Text
			}
			tables = append(tables, types.Element{
				Kind:    types.KindTable,
				Content: content,
				Source:  source,
				Page:    seg.Page,
			})
		case segmentImage:
			continue
		default:
			if strings.TrimSpace(seg.Text) == "" {
				continue
			}
			if buf.Len() == 0 {
				bufPage = seg.Page
			} else {
				buf.WriteString("\n")
			}
			buf.WriteString(seg.Text)
		}
	}
	flushText()

	return texts, tables
}
