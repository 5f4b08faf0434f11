package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kpilens/internal/model"
)

// ErrRunNotFound 指定 ID 的运行记录不存在
var ErrRunNotFound = errors.New("run not found")

// Run 一次完整分析的存档记录
type Run struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	SourceFile string    `json:"source_file"`
	Entity     string    `json:"entity"`
	Week       int       `json:"week"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
}

// SaveRun 存档一次分析运行，返回新记录 ID
func (s *Store) SaveRun(sourceFile, entity string, week int, results []model.AnalysisResult) (string, error) {
	payload, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}

	succeeded := 0
	for i := range results {
		if results[i].Success {
			succeeded++
		}
	}

	id := uuid.New().String()
	_, err = s.db.Exec(`
		INSERT INTO runs (id, source_file, entity, week, total, succeeded, results_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, sourceFile, entity, week, len(results), succeeded, string(payload))
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	return id, nil
}

// ListRuns 按时间倒序返回最近 limit 条运行记录，limit <= 0 时取 50
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, created_at, source_file, entity, week, total, succeeded
		FROM runs
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.SourceFile, &r.Entity, &r.Week, &r.Total, &r.Succeeded); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun 取单条运行记录及其完整结果
func (s *Store) GetRun(id string) (*Run, []model.AnalysisResult, error) {
	var (
		r       Run
		payload string
	)
	err := s.db.QueryRow(`
		SELECT id, created_at, source_file, entity, week, total, succeeded, results_json
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.CreatedAt, &r.SourceFile, &r.Entity, &r.Week, &r.Total, &r.Succeeded, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get run: %w", err)
	}

	var results []model.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &results); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	return &r, results, nil
}
