package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bosync/internal/ir"
)

// Fixture is the YAML document accepted by Seed.
//
//	accounts:
//	  - {id: "1.2.7", name: init0, witness: true}
//	objects:
//	  - id: "1.20.0"
//	    fields: {name: [["en", "Basketball"]]}
type Fixture struct {
	Accounts []Account      `yaml:"accounts"`
	Objects  []FixtureEntry `yaml:"objects"`
}

// FixtureEntry is one pre-existing ledger object.
type FixtureEntry struct {
	ID     ir.ObjectID    `yaml:"id"`
	Fields map[string]any `yaml:"fields"`
}

// LoadFixture decodes a fixture. Unknown keys are rejected.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// LoadFixtureFile reads a fixture from path.
func LoadFixtureFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer file.Close()
	return LoadFixture(file)
}

// Seed writes the accounts and objects of f in one transaction. Existing
// rows with the same id are replaced, so seeding is repeatable.
func (l *Ledger) Seed(ctx context.Context, f *Fixture) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, a := range f.Accounts {
		if a.ID.Kind() != ir.KindAccount || !a.ID.IsResolved() {
			return fmt.Errorf("account %q: not an account id", a.ID)
		}
		witness := 0
		if a.Witness {
			witness = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, name, witness) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, witness = excluded.witness
		`, string(a.ID), a.Name, witness); err != nil {
			return fmt.Errorf("write account %s: %w", a.ID, err)
		}
		if err := bumpCounter(ctx, tx, string(ir.KindAccount), a.ID.Instance()+1); err != nil {
			return err
		}
	}

	for _, obj := range f.Objects {
		if !obj.ID.IsResolved() {
			return fmt.Errorf("object %q: not a ledger id", obj.ID)
		}
		kind := obj.ID.Kind()
		body := ir.Fields(obj.Fields).Clone()
		if body == nil {
			body = ir.Fields{}
		}
		var parent ir.ObjectID
		if pf := kind.ParentField(); pf != "" {
			parent = body.ObjectID(pf)
			if parent == "" {
				return fmt.Errorf("object %s: missing %s", obj.ID, pf)
			}
		}
		body["id"] = string(obj.ID)
		if err := writeObject(ctx, tx, obj.ID, parent, body); err != nil {
			return err
		}
		if err := bumpCounter(ctx, tx, string(kind), obj.ID.Instance()+1); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
