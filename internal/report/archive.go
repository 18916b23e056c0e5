package report

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mind-engage/mindengage-readiness/internal/storage"
)

// Archive keeps rendered reports in a blob store, indexed by session in the
// report_archive table.
type Archive struct {
	blobs storage.BlobStore
	db    *sql.DB
}

func NewArchive(blobs storage.BlobStore, db *sql.DB) *Archive {
	return &Archive{blobs: blobs, db: db}
}

// Key is where a session's report lives in the blob store.
func Key(sessionID, fileName string) string {
	return fmt.Sprintf("reports/%s/%s", sessionID, fileName)
}

// Save stores the document and returns its key and a download URL.
func (a *Archive) Save(ctx context.Context, sessionID, configID, fileName string, doc []byte) (string, string, error) {
	key, err := a.blobs.Put(ctx, Key(sessionID, fileName), ContentType, bytes.NewReader(doc))
	if err != nil {
		return "", "", fmt.Errorf("archive report: %w", err)
	}
	if a.db != nil {
		_, err = a.db.ExecContext(ctx,
			`INSERT INTO report_archive (key, session_id, config_id, created_at)
			 VALUES ($1,$2,$3,$4) ON CONFLICT (key) DO NOTHING`,
			key, sessionID, configID, time.Now().Unix())
		if err != nil {
			return "", "", fmt.Errorf("index report: %w", err)
		}
	}
	url, err := a.blobs.SignedURL(ctx, key)
	if err != nil {
		return key, "", err
	}
	return key, url, nil
}

// Latest returns the most recently archived report of a session.
func (a *Archive) Latest(ctx context.Context, sessionID string) ([]byte, bool, error) {
	if a.db == nil {
		return nil, false, nil
	}
	var key string
	err := a.db.QueryRowContext(ctx,
		`SELECT key FROM report_archive WHERE session_id=$1 ORDER BY created_at DESC LIMIT 1`, sessionID).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	rc, err := a.blobs.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	defer rc.Close()
	doc, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}
