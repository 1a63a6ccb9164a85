// Package report renders run summaries for humans. A summary can be
// written as plain terminal text or as Markdown suitable for sharing and
// archiving alongside the fetched images.
package report
