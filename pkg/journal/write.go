package journal

import (
	"context"
	"fmt"
)

// callRow is the storage form of one journal row.
type callRow struct {
	SubstituteID string
	Seq          int64
	Contract     string
	Operation    string
	Signature    string
	Args         string
	Result       string
	Replayable   bool
}

// writeCall inserts one row into the journal.
// Uses ON CONFLICT DO NOTHING for idempotency: a row rewritten under
// the same (substitute_id, seq) is silently ignored. Other constraint
// violations still return errors.
func (s *Store) writeCall(ctx context.Context, row callRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recorded_calls
		(substitute_id, seq, contract, operation, signature, args, result, replayable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(substitute_id, seq) DO NOTHING
	`,
		row.SubstituteID,
		row.Seq,
		row.Contract,
		row.Operation,
		row.Signature,
		row.Args,
		row.Result,
		row.Replayable,
	)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	return nil
}
