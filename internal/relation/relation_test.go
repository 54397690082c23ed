package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordgraph/internal/directory"
	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/queryir"
)

type graph struct {
	d              *directory.Directory
	policy, claim  directory.Kind
	note           directory.Kind
	policyRelation *directory.Relation
}

func newGraph(t *testing.T) graph {
	t.Helper()
	schema := &ir.Schema{
		Types: []ir.TypeSpec{
			{Name: "Policy", Fields: []ir.FieldSpec{
				{Name: "Id", Type: ir.FieldString, Key: true},
			}},
			{Name: "Claim", Fields: []ir.FieldSpec{
				{Name: "Id", Type: ir.FieldString, Key: true},
				{Name: "Reason", Type: ir.FieldString, Nullable: true},
				{Name: "PolicyId", Type: ir.FieldString, Nullable: true},
				{Name: "Label", Type: ir.FieldString, Nullable: true, Computed: true},
			}},
			{Name: "Note", Fields: []ir.FieldSpec{
				{Name: "Id", Type: ir.FieldString, Key: true},
			}},
		},
		Relations: []ir.RelationSpec{{
			Name: "claims", Parent: "Policy", Child: "Claim", ForeignKey: "PolicyId",
			ParentNav: "Claims", ChildNav: "Policy",
		}},
	}
	label := func(_ *directory.Directory, rec *directory.Record) (ir.IRObject, error) {
		obj := rec.Fields.Clone()
		obj["Label"] = ir.IRString("claim-" + rec.ID)
		return obj, nil
	}
	d, err := directory.New(schema, directory.WithTranslator("Claim", label))
	require.NoError(t, err)

	g := graph{d: d}
	g.policy, _ = d.Kind("Policy")
	g.claim, _ = d.Kind("Claim")
	g.note, _ = d.Kind("Note")
	g.policyRelation = d.Relations()[0]
	return g
}

func (g graph) add(t *testing.T, k directory.Kind, id string, fields ir.IRObject) *directory.Record {
	t.Helper()
	rec := directory.NewRecord(id, fields)
	require.NoError(t, g.d.Insert(k, rec))
	return rec
}

func TestResolve(t *testing.T) {
	g := newGraph(t)

	byType, err := Resolve(g.d, g.policy, "Claim")
	require.NoError(t, err)
	byNav, err := Resolve(g.d, g.policy, "Claims")
	require.NoError(t, err)
	assert.Equal(t, byType, byNav)
	assert.True(t, byType.Many)

	_, err = Resolve(g.d, g.policy, "Note")
	assert.True(t, ir.IsNotFound(err), "undeclared association")

	_, err = Resolve(g.d, g.policy, "Nope")
	assert.True(t, ir.IsNotFound(err))
}

func TestRoundTrip(t *testing.T) {
	g := newGraph(t)
	p := g.add(t, g.policy, "2000", nil)
	c := g.add(t, g.claim, "3000", nil)

	g.d.Link(g.policyRelation, p, c)

	parent, err := One(g.d, g.claim, c, "Policy", nil)
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Same(t, p, parent.Record)

	children, err := Collection(g.d, g.policy, p, "Claim")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Same(t, c, children[0].Record)
	assert.Equal(t, ir.IRString("claim-3000"), children[0].Object["Label"], "children are translated")
}

func TestDeleteClearsBackReference(t *testing.T) {
	g := newGraph(t)
	p := g.add(t, g.policy, "2000", nil)
	c := g.add(t, g.claim, "3000", ir.IRObject{"PolicyId": ir.IRString("2000")})

	g.d.Unlink(g.policyRelation, c)

	parent, err := One(g.d, g.claim, c, "Policy", nil)
	require.NoError(t, err)
	assert.Nil(t, parent)

	children, err := Collection(g.d, g.policy, p, "Claims")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestCollection_EmptyAndUndeclared(t *testing.T) {
	g := newGraph(t)
	p := g.add(t, g.policy, "2000", nil)
	c := g.add(t, g.claim, "3000", nil)

	children, err := Collection(g.d, g.policy, p, "Claims")
	require.NoError(t, err)
	assert.NotNil(t, children)
	assert.Empty(t, children)

	parents, err := Collection(g.d, g.claim, c, "Policy")
	require.NoError(t, err)
	assert.Empty(t, parents)

	_, err = Collection(g.d, g.claim, c, "Note")
	assert.True(t, ir.IsNotFound(err))
}

func TestOne_ManySide(t *testing.T) {
	g := newGraph(t)
	p := g.add(t, g.policy, "2000", nil)
	for _, id := range []string{"3001", "3000", "3002"} {
		g.add(t, g.claim, id, ir.IRObject{
			"PolicyId": ir.IRString("2000"),
			"Reason":   ir.IRString("reason " + id),
		})
	}

	tests := []struct {
		name string
		key  *queryir.KeyPredicate
		want string
	}{
		{"no key selects first", nil, "3001"},
		{"identifier", &queryir.KeyPredicate{Value: "3000"}, "3000"},
		{"named key ignores case", &queryir.KeyPredicate{Name: "id", Value: "3002"}, "3002"},
		{"other property", &queryir.KeyPredicate{Name: "Reason", Value: "reason 3000"}, "3000"},
		{"computed property", &queryir.KeyPredicate{Name: "Label", Value: "claim-3002"}, "3002"},
		{"no match", &queryir.KeyPredicate{Value: "9999"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := One(g.d, g.policy, p, "Claims", tt.key)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Record.ID)
		})
	}
}

func TestOne_EmptyCollection(t *testing.T) {
	g := newGraph(t)
	p := g.add(t, g.policy, "2000", nil)

	got, err := One(g.d, g.policy, p, "Claims", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOne_UnknownKeyProperty(t *testing.T) {
	g := newGraph(t)
	p := g.add(t, g.policy, "2000", nil)
	g.add(t, g.claim, "3000", ir.IRObject{"PolicyId": ir.IRString("2000")})

	_, err := One(g.d, g.policy, p, "Claims", &queryir.KeyPredicate{Name: "Colour", Value: "x"})
	assert.True(t, ir.IsInvalidArgument(err))
}

func TestRecords(t *testing.T) {
	g := newGraph(t)
	p := g.add(t, g.policy, "2000", nil)
	g.add(t, g.claim, "3000", ir.IRObject{"PolicyId": ir.IRString("2000")})

	rule, recs, err := Records(g.d, g.policy, p, "Claims")
	require.NoError(t, err)
	assert.Equal(t, g.claim, rule.Target)
	require.Len(t, recs, 1)
	assert.Equal(t, "3000", recs[0].ID)
}
