// Package bigquery exports synced transactions and classifier audits to a
// BigQuery dataset for offline analysis.
package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"
)

const (
	transactionsTable = "transactions"
	modelOutputsTable = "model_outputs"
	dateFormat        = "2006-01-02"
)

// Warehouse holds a shared BigQuery client bound to one dataset.
type Warehouse struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewWarehouse creates a BigQuery client for projectID. Without options it
// uses Application Default Credentials.
func NewWarehouse(ctx context.Context, projectID, datasetID string, opts ...option.ClientOption) (*Warehouse, error) {
	if projectID == "" || datasetID == "" {
		return nil, errors.New("NewWarehouse: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewWarehouse: creating client: %w", err)
	}
	return &Warehouse{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// Close closes the BigQuery client connection.
func (w *Warehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// tableRef returns the fully qualified, backtick-quoted table name.
func (w *Warehouse) tableRef(table string) string {
	return qualifiedTable(w.projectID, w.datasetID, table)
}

func qualifiedTable(projectID, datasetID, table string) string {
	return "`" + projectID + "." + datasetID + "." + table + "`"
}
