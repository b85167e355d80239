package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ssato/atelier/internal/model"
)

// PostgresPromptRepo はPostgreSQLを使用した保存プロンプトリポジトリ。
type PostgresPromptRepo struct {
	db *sql.DB
}

// NewPostgresPromptRepo はPostgresPromptRepoを生成する。
func NewPostgresPromptRepo(db *sql.DB) *PostgresPromptRepo {
	return &PostgresPromptRepo{db: db}
}

// Insert は保存プロンプトを1件挿入する。
// created_at/updated_atはストア側のnow()で刻印され、promptに書き戻される。
func (r *PostgresPromptRepo) Insert(ctx context.Context, prompt *model.SavedPrompt) error {
	metadata, err := marshalMetadata(prompt.Metadata)
	if err != nil {
		return fmt.Errorf("メタデータのエンコードに失敗しました: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO saved_prompts (id, user_id, text, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())
		 RETURNING created_at, updated_at`,
		prompt.ID, prompt.UserID, prompt.Text, metadata,
	).Scan(&prompt.CreatedAt, &prompt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("保存プロンプトの作成に失敗しました: %w", err)
	}
	return nil
}

// ListByUser は指定ユーザーの保存プロンプトを挿入順（seq昇順）で返す。
func (r *PostgresPromptRepo) ListByUser(ctx context.Context, userID string) ([]*model.SavedPrompt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, text, metadata, created_at, updated_at
		 FROM saved_prompts
		 WHERE user_id = $1
		 ORDER BY seq ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("保存プロンプト一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var prompts []*model.SavedPrompt
	for rows.Next() {
		prompt := &model.SavedPrompt{}
		var metadata []byte

		if err := rows.Scan(
			&prompt.ID, &prompt.UserID, &prompt.Text,
			&metadata, &prompt.CreatedAt, &prompt.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("保存プロンプトの読み取りに失敗しました: %w", err)
		}

		meta, err := unmarshalMetadata(metadata)
		if err != nil {
			return nil, fmt.Errorf("メタデータのデコードに失敗しました: %w", err)
		}
		prompt.Metadata = meta

		prompts = append(prompts, prompt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("保存プロンプト一覧の走査に失敗しました: %w", err)
	}

	return prompts, nil
}

// DeleteByID は指定IDの保存プロンプトを削除する。
func (r *PostgresPromptRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_prompts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("保存プロンプトの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PromptRepository = (*PostgresPromptRepo)(nil)
