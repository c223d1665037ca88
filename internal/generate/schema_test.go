package generate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralflow/internal/domain"
	"neuralflow/internal/generate"
)

const pipelineJSON = `{
  "title": "Data Pipeline",
  "summary": "Raw events become a report.",
  "nodes": [
    {"id": "1", "label": "Ingest", "description": "Collect events", "type": "ACTION"},
    {"id": "2", "label": "Clean", "description": "Drop bad rows", "type": "SOLUTION"},
    {"id": "3", "label": "Report", "description": "Weekly numbers", "type": "OUTCOME"}
  ],
  "edges": [
    {"id": "e1", "from": "1", "to": "2"},
    {"id": "e2", "from": "2", "to": "3", "label": "feeds"}
  ]
}`

func TestDecode_LaysOutOnCircle(t *testing.T) {
	flow, err := generate.Decode([]byte(pipelineJSON), generate.DefaultLayout)
	require.NoError(t, err)

	assert.Equal(t, "Data Pipeline", flow.Title)
	require.Len(t, flow.Nodes, 3)
	require.Len(t, flow.Edges, 2)
	assert.NotNil(t, flow.Groups)
	assert.Empty(t, flow.Groups)

	want := []domain.Point{{X: 650, Y: 350}, {X: 275, Y: 566.506}, {X: 275, Y: 133.494}}
	for i, p := range want {
		assert.InDelta(t, p.X, flow.Nodes[i].X, 0.001, "node %d x", i)
		assert.InDelta(t, p.Y, flow.Nodes[i].Y, 0.001, "node %d y", i)
	}
	assert.Equal(t, domain.NodeTypeSolution, flow.Nodes[1].Type)
	assert.Equal(t, "feeds", flow.Edges[1].Label)
}

func TestDecode_KeepsExplicitCoordinates(t *testing.T) {
	raw := `{"title":"t","summary":"s","nodes":[
		{"id":"a","label":"A","description":"d","type":"CONCEPT","x":10,"y":20},
		{"id":"b","label":"B","description":"d","type":"CONCEPT"}
	],"edges":[]}`
	flow, err := generate.Decode([]byte(raw), generate.DefaultLayout)
	require.NoError(t, err)
	assert.Equal(t, domain.Point{X: 10, Y: 20}, flow.Nodes[0].Position())
	assert.InDelta(t, 150, flow.Nodes[1].X, 0.001, "second of two sits opposite the first slot")
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `here is your flow: {`, generate.ErrMalformedResponse},
		{"wrong shape", `{"nodes": "many"}`, generate.ErrMalformedResponse},
		{"missing title", `{"summary":"s","nodes":[{"id":"a","label":"A","description":"d","type":"ACTION"}],"edges":[]}`, generate.ErrSchemaViolation},
		{"missing edges", `{"title":"t","summary":"s","nodes":[{"id":"a","label":"A","description":"d","type":"ACTION"}]}`, generate.ErrSchemaViolation},
		{"missing nodes", `{"title":"t","summary":"s","edges":[]}`, generate.ErrSchemaViolation},
		{"missing description", `{"title":"t","summary":"s","nodes":[{"id":"a","label":"A","type":"ACTION"}],"edges":[]}`, generate.ErrSchemaViolation},
		{"self loop", `{"title":"t","summary":"s","nodes":[{"id":"a","label":"A","description":"d","type":"ACTION"}],"edges":[{"id":"e","from":"a","to":"a"}]}`, generate.ErrSchemaViolation},
		{"bad type", `{"title":"t","summary":"s","nodes":[{"id":"a","label":"A","description":"d","type":"IDEA"}],"edges":[]}`, generate.ErrSchemaViolation},
		{"lowercase type", `{"title":"t","summary":"s","nodes":[{"id":"a","label":"A","description":"d","type":"action"}],"edges":[]}`, generate.ErrSchemaViolation},
		{"edge without target", `{"title":"t","summary":"s","nodes":[{"id":"a","label":"A","description":"d","type":"ACTION"}],"edges":[{"id":"e","from":"a"}]}`, generate.ErrSchemaViolation},
		{"dangling edge", `{"title":"t","summary":"s","nodes":[{"id":"a","label":"A","description":"d","type":"ACTION"}],"edges":[{"id":"e","from":"a","to":"zz"}]}`, generate.ErrSchemaViolation},
		{"duplicate node", `{"title":"t","summary":"s","nodes":[{"id":"a","label":"A","description":"d","type":"ACTION"},{"id":"a","label":"B","description":"d","type":"ACTION"}],"edges":[]}`, generate.ErrSchemaViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := generate.Decode([]byte(tt.raw), generate.DefaultLayout)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecode_AcceptsEmptyValues(t *testing.T) {
	flow, err := generate.Decode([]byte(`{"title":"","summary":"","nodes":[
		{"id":"a","label":"","description":"","type":"CONCEPT"}],"edges":[]}`), generate.DefaultLayout)
	require.NoError(t, err)
	require.Len(t, flow.Nodes, 1)
	assert.Empty(t, flow.Nodes[0].Description)
	assert.Empty(t, flow.Title)

	flow, err = generate.Decode([]byte(`{"title":"t","summary":"s","nodes":[],"edges":[]}`), generate.DefaultLayout)
	require.NoError(t, err)
	assert.Empty(t, flow.Nodes)
	assert.NotNil(t, flow.Nodes)
}

func TestDecode_ErrorNamesJSONField(t *testing.T) {
	_, err := generate.Decode([]byte(`{"title":"t","summary":"s","nodes":[{"id":"a","label":"A","description":"d","type":"IDEA"}],"edges":[]}`), generate.DefaultLayout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nodes[0].type must be one of")
}

func TestCircleLayout(t *testing.T) {
	l := generate.CircleLayout{Center: domain.Point{X: 0, Y: 0}, Radius: 100}
	p := l.Position(1, 4)
	assert.InDelta(t, 0, p.X, 1e-9)
	assert.InDelta(t, 100, p.Y, 1e-9)
	assert.Equal(t, l.Center, l.Position(0, 0))
}
