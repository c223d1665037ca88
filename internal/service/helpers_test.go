package service_test

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"neuralflow/internal/domain"
	"neuralflow/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "neuralflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// seqID returns an id generator yielding id-1, id-2, ...
func seqID() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
}

// pipeline is a three node flow laid out on the grid.
func pipeline(title string) domain.Flow {
	return domain.Flow{
		Title:   title,
		Summary: "ingest to report",
		Nodes: []domain.Node{
			{ID: "ingest", Label: "Ingest", Type: domain.NodeTypeAction, X: 100, Y: 100},
			{ID: "clean", Label: "Clean Data", Type: domain.NodeTypeConcept, X: 300, Y: 100},
			{ID: "report", Label: "Report", Type: domain.NodeTypeOutcome, X: 500, Y: 100},
		},
		Edges: []domain.Edge{
			{ID: "e1", From: "ingest", To: "clean", Label: "raw"},
			{ID: "e2", From: "clean", To: "report", Label: "tidy"},
		},
	}
}
