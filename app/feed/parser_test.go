package feed

import (
	"testing"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <language>en-us</language>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>Test Item 1 Description</description>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <description>Test Item 2 Description</description>
      <guid>item-2</guid>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	metadata, entries, skipped, err := parser.Run([]byte(rssData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got: %s", metadata.Title)
	}
	if metadata.Link != "https://example.com" {
		t.Errorf("Expected link 'https://example.com', got: %s", metadata.Link)
	}
	if metadata.Language != "en-us" {
		t.Errorf("Expected language 'en-us', got: %s", metadata.Language)
	}

	if skipped != 0 {
		t.Errorf("Expected 0 skipped entries, got: %d", skipped)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(entries))
	}

	entry1 := entries[0]
	if entry1.Title != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %s", entry1.Title)
	}
	if entry1.Link != "https://example.com/item1" {
		t.Errorf("Expected link 'https://example.com/item1', got: %s", entry1.Link)
	}
	if entry1.GUID != "item-1" {
		t.Errorf("Expected GUID 'item-1', got: %s", entry1.GUID)
	}
	if entry1.Content != "Test Item 1 Description" {
		t.Errorf("Expected description as content fallback, got: %s", entry1.Content)
	}
	if entry1.PublishedAt == nil {
		t.Error("Expected published date to be set")
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Test Entry</title>
    <link href="https://example.com/entry1"/>
    <id>entry-1</id>
    <updated>2023-07-03T11:00:00Z</updated>
    <content type="html">Entry content</content>
  </entry>
</feed>`

	parser := NewParser()
	metadata, entries, skipped, err := parser.Run([]byte(atomData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Test Atom Feed" {
		t.Errorf("Expected title 'Test Atom Feed', got: %s", metadata.Title)
	}
	if skipped != 0 {
		t.Errorf("Expected 0 skipped entries, got: %d", skipped)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}
	if entries[0].GUID != "entry-1" {
		t.Errorf("Expected GUID 'entry-1', got: %s", entries[0].GUID)
	}
	if entries[0].Content != "Entry content" {
		t.Errorf("Expected content 'Entry content', got: %s", entries[0].Content)
	}
	if entries[0].PublishedAt == nil {
		t.Error("Expected updated date to fill in published date")
	}
}

func TestParseJSONFeed(t *testing.T) {
	jsonData := `{
  "version": "https://jsonfeed.org/version/1",
  "title": "Test JSON Feed",
  "home_page_url": "https://example.com",
  "items": [
    {
      "id": "json-1",
      "title": "JSON Item",
      "url": "https://example.com/json1",
      "content_html": "<p>Hello</p>"
    }
  ]
}`

	parser := NewParser()
	metadata, entries, _, err := parser.Run([]byte(jsonData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if metadata.Title != "Test JSON Feed" {
		t.Errorf("Expected title 'Test JSON Feed', got: %s", metadata.Title)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}
	if entries[0].GUID != "json-1" {
		t.Errorf("Expected GUID 'json-1', got: %s", entries[0].GUID)
	}
}

func TestParseSkipsEntriesWithoutIdentity(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Sparse Feed</title>
    <link>https://example.com</link>
    <item>
      <title>Usable Item</title>
      <link>https://example.com/usable</link>
    </item>
    <item>
      <description>No title, no link, no guid</description>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	_, entries, skipped, err := parser.Run([]byte(rssData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}
	if skipped != 1 {
		t.Errorf("Expected 1 skipped entry, got: %d", skipped)
	}
}

func TestParseUnrecognizedDocument(t *testing.T) {
	parser := NewParser()
	_, _, _, err := parser.Run([]byte("this is not a feed at all"))

	if err == nil {
		t.Fatal("Expected an error for an unrecognized document")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Errorf("Expected *ParseError, got: %T", err)
	}
}
