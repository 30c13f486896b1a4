package feed

import "fmt"

// Renumber rewrites message ids to 1..N in record order.
func Renumber(doc *Document) {
	for i := range doc.Records {
		doc.Records[i].MessageID = i + 1
	}
}

// Concat joins independently built documents of the same kind into one feed.
// Local message ids are discarded and the result is renumbered 1..N.
func Concat(docs ...Document) (Document, error) {
	if len(docs) == 0 {
		return Document{}, fmt.Errorf("%w: nothing to concatenate", ErrInvalidDocument)
	}

	kind := docs[0].Kind
	total := 0
	for i, d := range docs {
		if d.Kind != kind {
			return Document{}, fmt.Errorf("%w: document %d is %s, expected %s", ErrInvalidDocument, i, d.Kind, kind)
		}
		total += len(d.Records)
	}

	out := Document{Kind: kind, Records: make([]Record, 0, total)}
	for _, d := range docs {
		out.Records = append(out.Records, d.clone().Records...)
	}

	Renumber(&out)

	if err := Validate(out); err != nil {
		return Document{}, err
	}
	return out, nil
}
