package gcs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Archiver writes each fetched bank page to a bucket as
// raw/{accountID}/{yyyy}/{mm}/{dd}/{unixnano}-p{page}.json.
type Archiver struct {
	svc    StorageService
	bucket string
	now    func() time.Time
}

// NewArchiver creates an Archiver. now may be nil.
func NewArchiver(svc StorageService, bucket string, now func() time.Time) *Archiver {
	if now == nil {
		now = time.Now
	}
	return &Archiver{svc: svc, bucket: bucket, now: now}
}

// ObjectName returns the object path a page fetched at t is stored under.
func ObjectName(accountID string, page int, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("raw/%s/%04d/%02d/%02d/%d-p%d.json", accountID, t.Year(), int(t.Month()), t.Day(), t.UnixNano(), page)
}

// ArchivePage stores raw and returns its gs:// URI.
func (a *Archiver) ArchivePage(ctx context.Context, accountID string, page int, raw []byte) (string, error) {
	if accountID == "" {
		return "", errors.New("ArchivePage: account id is required")
	}
	object := ObjectName(accountID, page, a.now())
	if err := a.svc.PutObject(ctx, a.bucket, object, raw, "application/json"); err != nil {
		return "", fmt.Errorf("ArchivePage: %w", err)
	}
	return URI(a.bucket, object), nil
}

// FetchPage reads back an archived page.
func (a *Archiver) FetchPage(ctx context.Context, uri string) ([]byte, error) {
	data, err := a.svc.GetObject(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("FetchPage: %w", err)
	}
	return data, nil
}
