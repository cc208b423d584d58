package common

import (
	"github.com/google/uuid"
)

// DocumentIDForContent derives a stable document ID from the document
// text. Identical content always maps to the same ID, which keeps chunk
// ids stable across re-ingestion so the index upsert inserts nothing new.
func DocumentIDForContent(text string) string {
	return "doc_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(text)).String()
}
