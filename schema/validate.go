package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"dtracker/workflow"
)

// ValidateRequiredColumns checks that every table and column in Tables(reg)
// exists. The server refuses to start on a lagging schema; `dtracker migrate` fixes it.
func ValidateRequiredColumns(ctx context.Context, db *sql.DB, reg *workflow.Registry) error {
	var missing []string
	for _, t := range Tables(reg) {
		existing, err := existingColumns(ctx, db, t.Name)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			missing = append(missing, t.Name)
			continue
		}
		for _, c := range t.Columns {
			if !existing[strings.ToUpper(c.Name)] {
				missing = append(missing, t.Name+"."+c.Name)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tables or columns (run `dtracker migrate`): %s", strings.Join(missing, ", "))
	}
	log.Info().Str("component", "schema").Msg("required columns verified")
	return nil
}
