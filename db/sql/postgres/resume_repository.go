package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/adeilh/digitally/resumes"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const resumeColumns = `id, COALESCE(user_id::text, ''), original_name, mime_type, size, parsed_text, analysis,
                       analysis_type, metadata, created_at, updated_at`

// ResumeRepository persists resumes.Resume records inside PostgreSQL.
type ResumeRepository struct {
	db *sql.DB
}

var _ resumes.Store = (*ResumeRepository)(nil)

func NewResumeRepository(db *sql.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

func (r *ResumeRepository) Create(ctx context.Context, res resumes.Resume) (resumes.Resume, error) {
	analysis, metadata, err := marshalResume(res)
	if err != nil {
		return resumes.Resume{}, err
	}
	const query = `INSERT INTO resumes (id, user_id, original_name, mime_type, size, parsed_text, analysis, analysis_type, metadata)
                   VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8, $9)
                   RETURNING ` + resumeColumns
	return scanResume(r.db.QueryRowContext(ctx, query, uuid.NewString(), res.UserID, res.OriginalName, res.MimeType,
		res.Size, res.ParsedText, analysis, res.AnalysisType, metadata))
}

func (r *ResumeRepository) Get(ctx context.Context, id string) (resumes.Resume, error) {
	const query = `SELECT ` + resumeColumns + ` FROM resumes WHERE id = $1`
	return scanResume(r.db.QueryRowContext(ctx, query, id))
}

func (r *ResumeRepository) Update(ctx context.Context, res resumes.Resume) (resumes.Resume, error) {
	analysis, metadata, err := marshalResume(res)
	if err != nil {
		return resumes.Resume{}, err
	}
	const query = `UPDATE resumes
                   SET user_id = NULLIF($2, '')::uuid, original_name = $3, mime_type = $4, size = $5, parsed_text = $6,
                       analysis = $7, analysis_type = $8, metadata = $9, updated_at = now()
                   WHERE id = $1
                   RETURNING ` + resumeColumns
	return scanResume(r.db.QueryRowContext(ctx, query, res.ID, res.UserID, res.OriginalName, res.MimeType,
		res.Size, res.ParsedText, analysis, res.AnalysisType, metadata))
}

func (r *ResumeRepository) List(ctx context.Context, f resumes.Filter) ([]resumes.Resume, error) {
	if f.Empty() {
		return nil, nil
	}
	const query = `SELECT ` + resumeColumns + ` FROM resumes
                   WHERE ($1 <> '' AND user_id::text = $1) OR id::text = ANY($2)
                   ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, f.UserID, pq.Array(f.IDs))
	if err != nil {
		return nil, fmt.Errorf("postgres: list resumes: %w", err)
	}
	defer rows.Close()

	var out []resumes.Resume
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func marshalResume(res resumes.Resume) (analysis, metadata any, err error) {
	if analysis, err = nullJSON(res.Analysis); err != nil {
		return nil, nil, err
	}
	if metadata, err = nullJSON(res.Metadata); err != nil {
		return nil, nil, err
	}
	return analysis, metadata, nil
}

func scanResume(s scanner) (resumes.Resume, error) {
	var (
		res                resumes.Resume
		analysis, metadata []byte
	)
	err := s.Scan(&res.ID, &res.UserID, &res.OriginalName, &res.MimeType, &res.Size, &res.ParsedText,
		&analysis, &res.AnalysisType, &metadata, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return resumes.Resume{}, translate(err, resumes.ErrNotFound, nil)
	}
	if len(analysis) > 0 {
		res.Analysis = new(resumes.Analysis)
		if err := json.Unmarshal(analysis, res.Analysis); err != nil {
			return resumes.Resume{}, fmt.Errorf("postgres: resume analysis: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &res.Metadata); err != nil {
			return resumes.Resume{}, fmt.Errorf("postgres: resume metadata: %w", err)
		}
	}
	return res, nil
}
