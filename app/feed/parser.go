package feed

import (
	"bytes"
	"cmp"

	"github.com/mmcdole/gofeed"
)

// Parser normalizes raw RSS/Atom/JSON-feed bytes into canonical entries.
// gofeed handles format detection and character encoding.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses the document and returns feed metadata, entries in feed order,
// and the number of entries skipped for lacking any identity material.
func (p *Parser) Run(data []byte) (*Metadata, []Entry, int, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, 0, &ParseError{Err: err}
	}

	metadata := &Metadata{
		Title:       parsed.Title,
		Link:        parsed.Link,
		Description: parsed.Description,
		Language:    parsed.Language,
	}

	entries := make([]Entry, 0, len(parsed.Items))
	skipped := 0
	for _, item := range parsed.Items {
		if item == nil {
			skipped++
			continue
		}
		entry := p.normalizeItem(item)
		if entry.GUID == "" && entry.Link == "" && entry.Title == "" {
			// Nothing to build a stable identity from.
			skipped++
			continue
		}
		entries = append(entries, entry)
	}

	return metadata, entries, skipped, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Entry {
	entry := Entry{
		GUID:    item.GUID,
		Title:   item.Title,
		Link:    item.Link,
		Content: cmp.Or(item.Content, item.Description),
	}

	if item.PublishedParsed != nil {
		entry.PublishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		entry.PublishedAt = item.UpdatedParsed
	}

	return entry
}
