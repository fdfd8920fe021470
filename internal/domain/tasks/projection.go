// Package tasks derives per-viewer work lists from the document set. It keeps
// no state of its own.
package tasks

import "github.com/rpggio/saraban/internal/domain/document"

// PendingFor returns the documents awaiting a decision from viewerID.
func PendingFor(docs []document.Document, viewerID string) []document.Document {
	return filter(docs, func(d *document.Document) bool { return d.AwaitingOn(viewerID) })
}

// HistoryFor returns the documents viewerID has endorsed.
func HistoryFor(docs []document.Document, viewerID string) []document.Document {
	return filter(docs, func(d *document.Document) bool { return d.SignedBy(viewerID) })
}

// InboxFor returns the documents whose recipient set contains viewerID.
func InboxFor(docs []document.Document, viewerID string) []document.Document {
	return filter(docs, func(d *document.Document) bool { return d.HasRecipient(viewerID) })
}

func filter(docs []document.Document, keep func(*document.Document) bool) []document.Document {
	out := []document.Document{}
	for i := range docs {
		if keep(&docs[i]) {
			out = append(out, docs[i])
		}
	}
	return out
}
