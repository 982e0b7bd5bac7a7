// Package research ingests source material for the Scout. Each configured
// listing page is scraped with CSS selectors, every entry is scored against the
// pillar catalogue keywords, and new URLs are stored as sources.
package research
