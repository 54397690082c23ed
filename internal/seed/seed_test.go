package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recordgraph/internal/engine"
	"github.com/roach88/recordgraph/internal/ir"
	"github.com/roach88/recordgraph/internal/queryir"
)

const doc = `
Player:
  - Id: "10"
    Name: Ada
    Team: "1"
    Joined: 2021-05-04
  - Name: Bo
    Goals: 7
Team:
  - Id: 1
    Name: Owls
`

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(&ir.Schema{
		Types: []ir.TypeSpec{
			{Name: "Team", Fields: []ir.FieldSpec{
				{Name: "Id", Type: ir.FieldString, Key: true},
				{Name: "Name", Type: ir.FieldString, Nullable: true},
			}},
			{Name: "Player", Fields: []ir.FieldSpec{
				{Name: "Id", Type: ir.FieldString, Key: true},
				{Name: "Name", Type: ir.FieldString, Nullable: true},
				{Name: "Goals", Type: ir.FieldInt},
				{Name: "Joined", Type: ir.FieldDate, Nullable: true},
				{Name: "TeamId", Type: ir.FieldString, Nullable: true},
			}},
		},
		Relations: []ir.RelationSpec{{
			Name: "roster", Parent: "Team", Child: "Player", ForeignKey: "TeamId",
			ParentNav: "Players", ChildNav: "Team",
		}},
	})
	require.NoError(t, err)
	return e
}

func TestParse(t *testing.T) {
	data, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"Player", "Team"}, data.Types)
	assert.Equal(t, 3, data.Count())

	ada := data.Records["Player"][0]
	assert.Equal(t, ir.IRString("Ada"), ada["Name"])
	assert.Equal(t, ir.MustIRDate("2021-05-04"), ada["Joined"], "YAML timestamps become dates")
}

func TestParse_Empty(t *testing.T) {
	data, err := Parse(nil)
	require.NoError(t, err)
	assert.Zero(t, data.Count())
	assert.Empty(t, data.Types)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"not a mapping", "- a\n- b\n", "top level must map"},
		{"not a list", "Team: {Id: 1}\n", "must be a list"},
		{"record not a mapping", "Team:\n  - 5\n", "Team[0]"},
		{"duplicate type", "Team: []\nTeam: []\n", "listed twice"},
		{"bad yaml", "Team: [\n", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestApply_SchemaOrderAndLinks(t *testing.T) {
	e := newEngine(t)
	data, err := Parse([]byte(doc))
	require.NoError(t, err)

	n, err := Apply(e, data)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	players, err := e.RelatedCollection("Team", "1", "Players")
	require.NoError(t, err)
	require.Len(t, players, 1, "the team is created before its players")
	assert.Equal(t, ir.IRString("Ada"), players[0]["Name"])

	res, err := e.Query("Player", queryir.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "11"}, res.IDs(), "records without an id get the next key")
}

func TestApply_UndeclaredType(t *testing.T) {
	e := newEngine(t)
	data, err := Parse([]byte("Coach:\n  - Name: Zed\nTeam:\n  - Name: Owls\n"))
	require.NoError(t, err)

	n, err := Apply(e, data)
	assert.True(t, ir.IsNotFound(err))
	assert.Zero(t, n)

	res, err := e.Query("Team", queryir.Options{Count: true})
	require.NoError(t, err)
	assert.Zero(t, *res.Count, "nothing is written")
}

func TestApply_BadRecord(t *testing.T) {
	e := newEngine(t)
	data, err := Parse([]byte("Player:\n  - Goals: lots\n"))
	require.NoError(t, err)

	_, err = Apply(e, data)
	assert.True(t, ir.IsTypeMismatch(err))
	assert.Contains(t, err.Error(), "Player[0]")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	data, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, data.Count())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
