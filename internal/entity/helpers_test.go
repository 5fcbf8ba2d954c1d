package entity

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bosync/internal/catalog"
	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/ir"
	"github.com/roach88/bosync/internal/testutil"
)

const (
	testProposer ir.ObjectID = "1.2.7"
	testApprover ir.ObjectID = "1.2.8"

	hawksCeltics = "Basketball/NBA/Atlanta Hawks/Boston Celtics/2026-03-02T01:00:00"
	heatPelicans = "Basketball/NBA/Miami Heat/New Orleans Pelicans/2026-03-03T00:30:00"
)

func loadTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(filepath.Join("..", "catalog", "testdata", "catalog"))
	require.NoError(t, err)
	return cat
}

func loadTestEvents(t *testing.T) []*catalog.EventDef {
	t.Helper()
	events, err := catalog.LoadEvents(filepath.Join("..", "catalog", "testdata", "events.yaml"))
	require.NoError(t, err)
	return events
}

func buildTestTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := Build(loadTestCatalog(t), loadTestEvents(t))
	require.NoError(t, err)
	return tree
}

func createTestEngine(t *testing.T) (*engine.Engine, *testutil.FakeChain) {
	t.Helper()

	fake := testutil.NewFakeChain()
	fake.SetProposers(testProposer)
	clock := testutil.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	eng := engine.New(fake,
		engine.WithProposer(testProposer),
		engine.WithApprover(testApprover),
		engine.WithNow(clock.Now),
		engine.WithPassIDGenerator(testutil.NewFixedPassGenerator("pass-1")),
	)
	return eng, fake
}

func mustFind[T engine.Syncable](t *testing.T, tree *Tree, identifier string) T {
	t.Helper()
	s, ok := tree.Find(identifier)
	require.True(t, ok, "entity %s not in tree", identifier)
	typed, ok := s.(T)
	require.True(t, ok, "entity %s is %T", identifier, s)
	return typed
}

// executeBuffer plays the proposal buffer onto the fake chain as if the
// proposal had been approved, then empties the buffer. next holds the
// next instance per kind and is advanced.
func executeBuffer(t *testing.T, fake *testutil.FakeChain, eng *engine.Engine, next map[ir.ObjectKind]int) {
	t.Helper()
	ctx := context.Background()

	buffer := eng.Context().ProposalBuffer()
	created := make([]ir.ObjectID, len(buffer))
	for i, b := range buffer {
		fields := b.Op.Fields.Clone()
		for k, v := range fields {
			if ref, ok := v.(ir.ObjectID); ok && ref.IsProvisional() {
				require.NotEmpty(t, created[ref.Instance()], "op %d references op %d", i, ref.Instance())
				fields[k] = created[ref.Instance()]
			}
		}

		info, ok := b.Op.Type.Info()
		require.True(t, ok)
		switch info.Role {
		case ir.RoleCreate:
			id := info.Kind.ID(next[info.Kind])
			next[info.Kind]++
			if info.Kind == ir.KindEvent {
				fields["status"] = "upcoming"
			}
			fake.AddObject(id, fields)
			created[i] = id
		case ir.RoleUpdate, ir.RoleResolve, ir.RoleStatus:
			target := fields.ObjectID(info.Target)
			obj, err := fake.GetObject(ctx, target)
			require.NoError(t, err)
			for k, v := range fields {
				if name, ok := strings.CutPrefix(k, ir.UpdatePrefix); ok {
					obj[name] = v
				} else if k != info.Target {
					obj[k] = v
				}
			}
			if info.Role == ir.RoleResolve {
				obj["status"] = "graded"
			}
			fake.AddObject(target, obj)
		default:
			t.Fatalf("unexpected %s in proposal buffer", b.Op.Type)
		}
	}
	eng.Context().ClearProposalBuffer()
}
