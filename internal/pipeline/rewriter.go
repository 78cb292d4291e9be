package pipeline

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RewriteHTML points every resolved img element at its durable published URL,
// in place. Elements whose reference failed to resolve keep their original
// src so the document stays inspectable under partial failure.
func RewriteHTML(doc *goquery.Document, refMap map[string]string) {
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok {
			return
		}
		if published, ok := refMap[src]; ok {
			sel.SetAttr("src", published)
		}
	})
}

// RewriteText substitutes every resolved locator with its published URL
// everywhere it occurs in the document text. The reference map carries both
// the as-written and the absolute form of each locator, so documents that
// mix the two are covered. Longer locators are replaced first so that a
// locator which is a prefix of another is never clobbered mid-substitution.
func RewriteText(text string, refMap map[string]string) string {
	locators := make([]string, 0, len(refMap))
	for locator := range refMap {
		locators = append(locators, locator)
	}
	sort.Slice(locators, func(i, j int) bool {
		if len(locators[i]) != len(locators[j]) {
			return len(locators[i]) > len(locators[j])
		}
		return locators[i] < locators[j]
	})

	for _, locator := range locators {
		text = strings.ReplaceAll(text, locator, refMap[locator])
	}
	return text
}
