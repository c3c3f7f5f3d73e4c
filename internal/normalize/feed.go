package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"
)

var trailingDigits = regexp.MustCompile(`(\d+)\D*$`)

// decodeFeed maps each item of an RSS, Atom or JSON Feed document to a raw
// record using the scraper's field names.
func decodeFeed(body []byte) ([]map[string]any, error) {
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	records := make([]map[string]any, 0, len(feed.Items))
	for _, item := range feed.Items {
		records = append(records, feedRecord(item))
	}
	return records, nil
}

func feedRecord(item *gofeed.Item) map[string]any {
	rec := map[string]any{
		FieldProjectName: item.Title,
		FieldURL:         item.Link,
	}

	text := item.Description
	if text == "" {
		text = item.Content
	}
	rec[FieldRawText] = text

	if item.PublishedParsed != nil {
		rec[FieldPostDate] = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else if item.Published != "" {
		rec[FieldPostDate] = item.Published
	}

	if id, ok := guidNumber(item.GUID); ok {
		rec[FieldPostID] = id
	} else if id, ok := guidNumber(item.Link); ok {
		rec[FieldPostID] = id
	}

	if len(item.Categories) > 0 {
		rec[FieldListingType] = item.Categories[0]
	}
	if len(item.Categories) > 1 {
		rec[FieldPropertyType] = item.Categories[1]
	}
	return rec
}

// guidNumber extracts the last run of digits in s, as in
// "https://facebook.com/groups/x/posts/123456/".
func guidNumber(s string) (int64, bool) {
	m := trailingDigits.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
