package store

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

const metadataSchema = `
CREATE TABLE IF NOT EXISTS store_header (
	generation_id TEXT NOT NULL,
	model_name TEXT NOT NULL,
	embedding_dim INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS metadata (
	row_index INTEGER PRIMARY KEY,
	path TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	total_chunks INTEGER NOT NULL,
	char_start INTEGER NOT NULL,
	char_end INTEGER NOT NULL,
	content_hash TEXT NOT NULL,
	origin TEXT NOT NULL,
	entities TEXT NOT NULL,
	entity_types TEXT NOT NULL,
	has_uproperty INTEGER NOT NULL,
	has_uclass INTEGER NOT NULL,
	has_ufunction INTEGER NOT NULL,
	has_ustruct INTEGER NOT NULL,
	has_uenum INTEGER NOT NULL,
	is_header INTEGER NOT NULL,
	is_implementation INTEGER NOT NULL,
	invalid INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metadata_path ON metadata(path);
`

// WriteMetadataDB writes a fresh metadata database at path, in row_index
// order, with the given header fields. It does not attempt to merge with
// an existing database: callers write to a *.new path and rename.
func WriteMetadataDB(path string, generationID, modelName string, dim int, records []Record) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "open metadata db", err)
	}
	defer db.Close()

	if _, err := db.Exec(metadataSchema); err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "create metadata schema", err)
	}
	if _, err := db.Exec(`INSERT INTO store_header(generation_id, model_name, embedding_dim, created_at) VALUES (?, ?, ?, ?)`,
		generationID, modelName, dim, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "write store header", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "begin metadata transaction", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO metadata
		(row_index, path, chunk_index, total_chunks, char_start, char_end, content_hash, origin,
		 entities, entity_types, has_uproperty, has_uclass, has_ufunction, has_ustruct, has_uenum,
		 is_header, is_implementation, invalid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return coreerrors.Wrap(coreerrors.KindIO, "prepare metadata insert", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(i, r.Path, r.ChunkIndex, r.TotalChunks, r.CharStart, r.CharEnd, r.ContentHash, r.Origin,
			strings.Join(r.Entities, ","), strings.Join(r.EntityTypes, ","),
			boolInt(r.HasUProperty), boolInt(r.HasUClass), boolInt(r.HasUFunction), boolInt(r.HasUStruct), boolInt(r.HasUEnum),
			boolInt(r.IsHeader), boolInt(r.IsImplementation), boolInt(r.Invalid)); err != nil {
			tx.Rollback()
			return coreerrors.Wrap(coreerrors.KindIO, "insert metadata row", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return coreerrors.Wrap(coreerrors.KindIO, "commit metadata", err)
	}
	return nil
}

// ReadMetadataDB loads every record, in row_index order, plus the header.
func ReadMetadataDB(path string) ([]Record, Header, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, Header{}, coreerrors.Wrap(coreerrors.KindIO, "open metadata db", err)
	}
	defer db.Close()

	var hdr Header
	var createdAt string
	row := db.QueryRow(`SELECT generation_id, model_name, embedding_dim, created_at FROM store_header LIMIT 1`)
	if err := row.Scan(&hdr.GenerationID, &hdr.ModelName, &hdr.Dim, &createdAt); err != nil {
		return nil, Header{}, coreerrors.Wrap(coreerrors.KindCorrupt, "read store header", err)
	}
	hdr.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	rows, err := db.Query(`SELECT path, chunk_index, total_chunks, char_start, char_end, content_hash, origin,
		entities, entity_types, has_uproperty, has_uclass, has_ufunction, has_ustruct, has_uenum,
		is_header, is_implementation, invalid FROM metadata ORDER BY row_index ASC`)
	if err != nil {
		return nil, hdr, coreerrors.Wrap(coreerrors.KindIO, "query metadata", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var entities, entityTypes string
		var hasUP, hasUC, hasUF, hasUS, hasUE, isH, isI, inv int
		if err := rows.Scan(&r.Path, &r.ChunkIndex, &r.TotalChunks, &r.CharStart, &r.CharEnd, &r.ContentHash, &r.Origin,
			&entities, &entityTypes, &hasUP, &hasUC, &hasUF, &hasUS, &hasUE, &isH, &isI, &inv); err != nil {
			return nil, hdr, coreerrors.Wrap(coreerrors.KindCorrupt, "scan metadata row", err)
		}
		if entities != "" {
			r.Entities = strings.Split(entities, ",")
		}
		if entityTypes != "" {
			r.EntityTypes = strings.Split(entityTypes, ",")
		}
		r.HasUProperty, r.HasUClass, r.HasUFunction, r.HasUStruct, r.HasUEnum = hasUP != 0, hasUC != 0, hasUF != 0, hasUS != 0, hasUE != 0
		r.IsHeader, r.IsImplementation, r.Invalid = isH != 0, isI != 0, inv != 0
		records = append(records, r)
	}
	hdr.Rows = len(records)
	return records, hdr, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
