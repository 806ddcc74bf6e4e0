// Package sqlite implements the SQLite storage backend for cruds.
// SQLite is the query engine; one JSONL file per model is the source of truth.
package sqlite

// Schema DDL. Every model shares the documents table; rows are partitioned by
// the model slug and the record body is stored as a JSON object.
const (
	createDocuments = `CREATE TABLE documents (
    model TEXT NOT NULL,
    pk TEXT NOT NULL,
    data TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (model, pk)
);`

	idxDocumentsCreated = `CREATE INDEX idx_documents_created ON documents(model, created_at, pk);`
)

// schemaDDL lists all statements executed on Attach, in order.
var schemaDDL = []string{
	createDocuments,
	idxDocumentsCreated,
}

// timeLayout is a fixed-width UTC layout so that created_at sorts
// lexicographically in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z"
