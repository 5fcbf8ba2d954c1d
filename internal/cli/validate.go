package cli

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/bosync/internal/catalog"
	"github.com/roach88/bosync/internal/entity"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Files    int                        `json:"files,omitempty"`
	Events   int                        `json:"events,omitempty"`
	Entities int                        `json:"entities,omitempty"`
	Kinds    map[string]int             `json:"kinds,omitempty"`
	Errors   []*catalog.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog and events file",
		Long: `Validate every catalog document against the schema, resolve the
references between documents, place the events of the events file and
build the entity tree. Nothing is read from or written to the ledger.

Example:
  bosync validate --catalog ./catalog --events ./events.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd.OutOrStdout())
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, w io.Writer) error {
	formatter := newFormatter(opts, w)
	cfg := &opts.Config

	cat, events, err := loadInputs(cfg)
	if err == nil {
		var tree *entity.Tree
		tree, err = buildTree(cfg, cat, events)
		if err == nil {
			return outputValidateSuccess(formatter, ValidationResult{
				Valid:    true,
				Files:    cat.Files,
				Events:   len(events),
				Entities: tree.Len(),
				Kinds:    tree.Kinds(),
			})
		}
	}

	var (
		many    catalog.ValidationErrors
		one     *catalog.ValidationError
		missing *entity.MissingFieldError
	)
	switch {
	case errors.As(err, &many):
		return outputValidationErrors(formatter, many)
	case errors.As(err, &one):
		return outputValidationErrors(formatter, catalog.ValidationErrors{one})
	case errors.As(err, &missing):
		return outputValidationErrors(formatter, catalog.ValidationErrors{{
			File:    missing.Entity,
			Path:    missing.Field,
			Message: "a value is mandatory",
		}})
	default:
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), err, nil)
	}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	return formatter.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Catalog valid: %d document(s), %d event(s), %d entities\n",
			result.Files, result.Events, result.Entities)
		if formatter.Verbose {
			for _, kind := range slices.Sorted(maps.Keys(result.Kinds)) {
				fmt.Fprintf(w, "  %-22s %d\n", kind, result.Kinds[kind])
			}
		}
	})
}

// outputValidationErrors outputs every validation error. Validation
// failures exit with ExitFailure.
func outputValidationErrors(formatter *OutputFormatter, errs catalog.ValidationErrors) error {
	message := fmt.Sprintf("validation failed with %d error(s)", len(errs))
	if formatter.Format == "json" {
		return formatter.Fail(ExitFailure, ErrCodeCatalog, message, nil, ValidationResult{Errors: errs})
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", e)
	}
	return NewExitError(ExitFailure, message)
}
