package generate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"neuralflow/internal/domain"
)

// graphResponse is the JSON object the model is asked to return. Text
// fields are pointers so "required" means the key is present; an empty
// string is a valid value.
type graphResponse struct {
	Title   *string        `json:"title" validate:"required"`
	Summary *string        `json:"summary" validate:"required"`
	Nodes   []nodeResponse `json:"nodes" validate:"required,dive"`
	Edges   []edgeResponse `json:"edges" validate:"required,dive"`
}

type nodeResponse struct {
	ID          string   `json:"id" validate:"required"`
	Label       *string  `json:"label" validate:"required"`
	Description *string  `json:"description" validate:"required"`
	Type        string   `json:"type" validate:"required,oneof=CONCEPT ACTION OUTCOME PROBLEM SOLUTION"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
}

type edgeResponse struct {
	ID    string `json:"id" validate:"required"`
	From  string `json:"from" validate:"required"`
	To    string `json:"to" validate:"required"`
	Label string `json:"label,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode parses a model response into a flow. Nodes without coordinates are
// placed on layout in list order. The returned flow has an empty group list.
func Decode(raw []byte, layout CircleLayout) (domain.Flow, error) {
	var resp graphResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.Flow{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := validate.Struct(resp); err != nil {
		return domain.Flow{}, fmt.Errorf("%w: %s", ErrSchemaViolation, describe(err))
	}
	if err := checkReferences(resp); err != nil {
		return domain.Flow{}, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	flow := domain.Flow{
		Title:   *resp.Title,
		Summary: *resp.Summary,
		Nodes:   make([]domain.Node, len(resp.Nodes)),
		Edges:   make([]domain.Edge, len(resp.Edges)),
		Groups:  []domain.Group{},
	}
	for i, n := range resp.Nodes {
		pos := layout.Position(i, len(resp.Nodes))
		if n.X != nil && n.Y != nil {
			pos = domain.Point{X: *n.X, Y: *n.Y}
		}
		flow.Nodes[i] = domain.Node{
			ID:          n.ID,
			Label:       *n.Label,
			Description: *n.Description,
			Type:        domain.NodeType(n.Type),
			X:           pos.X,
			Y:           pos.Y,
		}
	}
	for i, e := range resp.Edges {
		flow.Edges[i] = domain.Edge{ID: e.ID, From: e.From, To: e.To, Label: e.Label}
	}
	return flow, nil
}

// checkReferences enforces what struct tags cannot: unique ids, edges
// naming existing nodes and no self-loops.
func checkReferences(resp graphResponse) error {
	nodes := make(map[string]struct{}, len(resp.Nodes))
	for _, n := range resp.Nodes {
		if _, dup := nodes[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		nodes[n.ID] = struct{}{}
	}
	edges := make(map[string]struct{}, len(resp.Edges))
	for _, e := range resp.Edges {
		if _, dup := edges[e.ID]; dup {
			return fmt.Errorf("duplicate edge id %q", e.ID)
		}
		edges[e.ID] = struct{}{}
		if _, ok := nodes[e.From]; !ok {
			return fmt.Errorf("edge %q: unknown source %q", e.ID, e.From)
		}
		if _, ok := nodes[e.To]; !ok {
			return fmt.Errorf("edge %q: unknown target %q", e.ID, e.To)
		}
		if e.From == e.To {
			return fmt.Errorf("edge %q: connects %q to itself", e.ID, e.From)
		}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s needs at least %s entries", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
