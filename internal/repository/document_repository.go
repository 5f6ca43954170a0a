package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/quimitrack/chem-registry/internal/model"
)

// DocumentRepo persists the append-only upload audit trail.  Rows record
// who uploaded which file and when; the canonical pdf pointer used for
// access control lives on the product record.
type DocumentRepo struct{ db *sql.DB }

func NewDocumentRepo(db *sql.DB) *DocumentRepo { return &DocumentRepo{db: db} }

const documentColumns = "id, original_filename, storage_key, url, uploaded_by, uploaded_at"

// Create appends one upload record and populates its ID.
func (r *DocumentRepo) Create(ctx context.Context, d *model.PDFDocument) error {
	var uploadedBy any
	if d.UploadedBy != nil {
		uploadedBy = *d.UploadedBy
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO pdf_documents (original_filename, storage_key, url, uploaded_by) VALUES (?,?,?,?)",
		d.OriginalFilename, d.StorageKey, d.URL, uploadedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// GetByID fetches one upload record.
func (r *DocumentRepo) GetByID(ctx context.Context, id uint64) (*model.PDFDocument, error) {
	var d model.PDFDocument
	var uploadedBy sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM pdf_documents WHERE id=? LIMIT 1", id).
		Scan(&d.ID, &d.OriginalFilename, &d.StorageKey, &d.URL, &uploadedBy, &d.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if uploadedBy.Valid {
		v := uint64(uploadedBy.Int64)
		d.UploadedBy = &v
	}
	return &d, nil
}

// Delete removes one upload record.  Returns false when no row matched.
func (r *DocumentRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM pdf_documents WHERE id=?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
