package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ssato/atelier/internal/model"
)

// PostgresCreationRepo はPostgreSQLを使用した生成物リポジトリ。
// 任意項目は明示的なNULLとして保存し、メタデータはJSONBに保存する。
type PostgresCreationRepo struct {
	db *sql.DB
}

// NewPostgresCreationRepo はPostgresCreationRepoを生成する。
func NewPostgresCreationRepo(db *sql.DB) *PostgresCreationRepo {
	return &PostgresCreationRepo{db: db}
}

// Insert は生成物を1件挿入する。
// created_at/updated_atはストア側のnow()で刻印され、creationに書き戻される。
func (r *PostgresCreationRepo) Insert(ctx context.Context, creation *model.Creation) error {
	metadata, err := marshalMetadata(creation.Metadata)
	if err != nil {
		return fmt.Errorf("メタデータのエンコードに失敗しました: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO creations (id, user_id, kind, prompt, image_url, model_url,
		                        processed_url, source_creation_id, aspect_ratio,
		                        model_name, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		 RETURNING created_at, updated_at`,
		creation.ID, creation.UserID, string(creation.Kind), creation.Prompt,
		nullStringPtr(creation.ImageURL), nullStringPtr(creation.ModelURL),
		nullStringPtr(creation.ProcessedURL), nullStringPtr(creation.SourceCreationID),
		nullStringPtr(creation.AspectRatio), nullStringPtr(creation.ModelName),
		metadata,
	).Scan(&creation.CreatedAt, &creation.UpdatedAt)
	if err != nil {
		return fmt.Errorf("生成物の作成に失敗しました: %w", err)
	}
	return nil
}

// ListByUser は指定ユーザーの生成物を挿入順（seq昇順）で返す。
// kindが空文字列以外の場合はその種別のみに絞り込む。
func (r *PostgresCreationRepo) ListByUser(ctx context.Context, userID string, kind model.CreationKind) ([]*model.Creation, error) {
	query := `SELECT id, user_id, kind, prompt, image_url, model_url,
	                 processed_url, source_creation_id, aspect_ratio,
	                 model_name, metadata, created_at, updated_at
	          FROM creations
	          WHERE user_id = $1`
	args := []any{userID}

	if kind != "" {
		query += ` AND kind = $2`
		args = append(args, string(kind))
	}
	query += ` ORDER BY seq ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("生成物一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var creations []*model.Creation
	for rows.Next() {
		creation, err := scanCreation(rows)
		if err != nil {
			return nil, err
		}
		creations = append(creations, creation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("生成物一覧の走査に失敗しました: %w", err)
	}

	return creations, nil
}

// DeleteByID は指定IDの生成物を削除する。
// 所有者の検証は行わない（呼び出し側で確認済みであることを前提とする）。
func (r *PostgresCreationRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM creations WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("生成物の削除に失敗しました: %w", err)
	}
	return nil
}

// scanCreation は1行を読み取りCreationに変換する。
func scanCreation(rows *sql.Rows) (*model.Creation, error) {
	creation := &model.Creation{}
	var kind string
	var imageURL, modelURL, processedURL, sourceID, aspectRatio, modelName sql.NullString
	var metadata []byte

	if err := rows.Scan(
		&creation.ID, &creation.UserID, &kind, &creation.Prompt,
		&imageURL, &modelURL, &processedURL, &sourceID, &aspectRatio, &modelName,
		&metadata, &creation.CreatedAt, &creation.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("生成物の読み取りに失敗しました: %w", err)
	}

	creation.Kind = model.CreationKind(kind)
	creation.ImageURL = ptrFromNullString(imageURL)
	creation.ModelURL = ptrFromNullString(modelURL)
	creation.ProcessedURL = ptrFromNullString(processedURL)
	creation.SourceCreationID = ptrFromNullString(sourceID)
	creation.AspectRatio = ptrFromNullString(aspectRatio)
	creation.ModelName = ptrFromNullString(modelName)

	meta, err := unmarshalMetadata(metadata)
	if err != nil {
		return nil, fmt.Errorf("メタデータのデコードに失敗しました: %w", err)
	}
	creation.Metadata = meta

	return creation, nil
}

// nullStringPtr は*stringをsql.NullStringに変換する。nilはNULLになる。
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// ptrFromNullString はsql.NullStringを*stringに変換する。NULLはnilになる。
func ptrFromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// marshalMetadata はメタデータをJSONBカラム用にエンコードする。
// nilは空オブジェクトとして保存する。
func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}

// unmarshalMetadata はJSONBカラムからメタデータをデコードする。
func unmarshalMetadata(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// compile-time interface check
var _ CreationRepository = (*PostgresCreationRepo)(nil)
