package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/Nweremizu/helm/internal/classifier"
)

type ModelOutputRow struct {
	OutputID string `bigquery:"output_id"` // REQUIRED
	RunID    string `bigquery:"run_id"`    // REQUIRED

	Provider    string `bigquery:"provider"`     // REQUIRED
	InputCount  int64  `bigquery:"input_count"`  // REQUIRED
	ResultCount int64  `bigquery:"result_count"` // REQUIRED

	RawJSON bigquery.NullJSON   `bigquery:"raw_json"` // REQUIRED (JSON)
	Error   bigquery.NullString `bigquery:"error"`    // NULLABLE

	DurationMS int64     `bigquery:"duration_ms"`
	CreatedTS  time.Time `bigquery:"created_ts"` // REQUIRED
}

type auditPayload struct {
	Inputs  []classifier.Input  `json:"inputs"`
	Results []classifier.Result `json:"results"`
}

// NewModelOutputRow maps one classifier call to its audit row.
func NewModelOutputRow(a classifier.Audit) (*ModelOutputRow, error) {
	raw, err := json.Marshal(auditPayload{Inputs: a.Inputs, Results: a.Results})
	if err != nil {
		return nil, fmt.Errorf("NewModelOutputRow: encoding payload: %w", err)
	}

	runID := a.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	row := &ModelOutputRow{
		OutputID:    uuid.NewString(),
		RunID:       runID,
		Provider:    a.Provider,
		InputCount:  int64(len(a.Inputs)),
		ResultCount: int64(len(a.Results)),
		RawJSON:     bigquery.NullJSON{JSONVal: string(raw), Valid: true},
		DurationMS:  a.Duration.Milliseconds(),
		CreatedTS:   a.StartedAt.UTC(),
	}
	if a.Err != "" {
		row.Error = bigquery.NullString{StringVal: a.Err, Valid: true}
	}
	return row, nil
}

// ModelOutputRecorder writes classifier audits to the model_outputs table.
type ModelOutputRecorder struct {
	w *Warehouse
}

func NewModelOutputRecorder(w *Warehouse) *ModelOutputRecorder {
	return &ModelOutputRecorder{w: w}
}

// RecordClassification inserts one audit row. Uses DML INSERT to avoid
// streaming buffer issues when rows are read back soon after.
func (r *ModelOutputRecorder) RecordClassification(ctx context.Context, a classifier.Audit) error {
	row, err := NewModelOutputRow(a)
	if err != nil {
		return err
	}

	q := r.w.client.Query(`
		INSERT INTO ` + r.w.tableRef(modelOutputsTable) + ` (
			output_id, run_id, provider,
			input_count, result_count, raw_json,
			error, duration_ms, created_ts
		)
		VALUES (
			@output_id, @run_id, @provider,
			@input_count, @result_count, PARSE_JSON(@raw_json),
			@error, @duration_ms, @created_ts
		)
	`)

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "run_id", Value: row.RunID},
		{Name: "provider", Value: row.Provider},
		{Name: "input_count", Value: row.InputCount},
		{Name: "result_count", Value: row.ResultCount},
		{Name: "raw_json", Value: row.RawJSON.JSONVal},
		{Name: "error", Value: row.Error},
		{Name: "duration_ms", Value: row.DurationMS},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("RecordClassification: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("RecordClassification: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("RecordClassification: job error: %w", err)
	}
	return nil
}

// ListRecentModelOutputs returns up to limit audit rows, newest first.
func (r *ModelOutputRecorder) ListRecentModelOutputs(ctx context.Context, limit int) ([]*ModelOutputRow, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.w.client.Query(`
		SELECT
			output_id, run_id, provider,
			input_count, result_count, raw_json,
			error, duration_ms, created_ts
		FROM ` + r.w.tableRef(modelOutputsTable) + `
		ORDER BY created_ts DESC
		LIMIT @limit
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecentModelOutputs: query read: %w", err)
	}

	var rows []*ModelOutputRow
	for {
		var row ModelOutputRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecentModelOutputs: iter next: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
