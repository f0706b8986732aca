package adif

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/qsolog/pkg/qso"
	"github.com/ssargent/qsolog/pkg/storage"
	"go.uber.org/zap"
)

// Import parses text and commits every valid, non-duplicate record to store.
//
// A text that fails the format check yields a result with one FormatError and
// ErrorCount 1. Otherwise Import never fails as a whole: problems with
// individual records are reported in the result.
func (c *Codec) Import(ctx context.Context, text string, store storage.ContactStore) ImportResult {
	b, err := c.Parse(text)
	if err != nil {
		return formatFailure(err)
	}
	res := c.Commit(ctx, b, store)
	c.logResult("adif import", res)
	return res
}

// Preview runs the full import against a scratch transaction from provider
// and discards it. The logbook is left unchanged.
//
// The returned error is non-nil only when the scratch transaction cannot be
// opened.
func (c *Codec) Preview(ctx context.Context, text string, provider storage.ScratchProvider) (ImportResult, error) {
	b, err := c.Parse(text)
	if err != nil {
		res := formatFailure(err)
		res.Preview = true
		return res, nil
	}

	scratch, err := provider.BeginScratch(ctx)
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "begin preview")
	}
	defer func() {
		if derr := scratch.Discard(ctx); derr != nil {
			c.log.Warn("discard preview scratch", zap.Error(derr))
		}
	}()

	res := c.Commit(ctx, b, scratch)
	res.Preview = true
	clearScratchIDs(&res)
	c.logResult("adif preview", res)
	return res, nil
}

// clearScratchIDs blanks the IDs of contacts that only ever existed in a
// preview scratch: everything in Imported, and any duplicate that matched one
// of them.
func clearScratchIDs(res *ImportResult) {
	scratchIDs := make(map[string]struct{}, len(res.Imported))
	for i := range res.Imported {
		scratchIDs[res.Imported[i].ID] = struct{}{}
		res.Imported[i].ID = ""
	}
	for i := range res.Duplicates {
		if _, ok := scratchIDs[res.Duplicates[i].ID]; ok {
			res.Duplicates[i].ID = ""
		}
	}
}

// Commit writes the candidates of b to store in record order, skipping those
// that duplicate a contact already in store (including one created earlier
// in the same batch). Diagnostics from b and from the store are merged in
// record order.
func (c *Codec) Commit(ctx context.Context, b Batch, store storage.ContactStore) ImportResult {
	res := ImportResult{ErrorCount: b.Rejected}

	var ei, wi int
	flush := func(upTo int) {
		for ; ei < len(b.Errors) && markAt(b.errMarks, ei) <= upTo; ei++ {
			res.Errors = append(res.Errors, b.Errors[ei])
		}
		for ; wi < len(b.Warnings) && markAt(b.warnMarks, wi) <= upTo; wi++ {
			res.Warnings = append(res.Warnings, b.Warnings[wi])
		}
	}

	for k, cand := range b.Candidates {
		flush(k)
		contact := cand.Contact

		if existing, dup := c.findDuplicate(ctx, store, cand); dup {
			res.DuplicateCount++
			res.Duplicates = append(res.Duplicates, existing)
			res.Warnings = append(res.Warnings, ImportWarning{
				LineNumber: cand.Record,
				Message:    "Duplicate QSO found: " + contact.Callsign + " on " + contact.Band + " " + contact.Mode,
				Kind:       DuplicateFound,
			})
			continue
		}

		if err := store.Create(ctx, &contact); err != nil {
			res.ErrorCount++
			res.Errors = append(res.Errors, ImportError{
				LineNumber: cand.Record,
				Message:    "Failed to save QSO: " + err.Error(),
				Kind:       PersistenceError,
			})
			c.log.Warn("save imported contact", zap.Int("record", cand.Record), zap.Error(err))
			continue
		}
		res.ImportedCount++
		res.Imported = append(res.Imported, contact)
	}
	flush(len(b.Candidates))
	return res
}

// findDuplicate reports whether store holds a contact within DuplicateWindow
// of cand. Records without a complete key are never duplicates. A failed
// lookup is logged and treated as no match.
func (c *Codec) findDuplicate(ctx context.Context, store storage.ContactStore, cand Candidate) (qso.Contact, bool) {
	contact := cand.Contact
	if !contact.HasDuplicateKey() {
		return qso.Contact{}, false
	}
	ts := contact.Timestamp.OrZero()
	existing, found, err := store.FindDuplicate(ctx, storage.DuplicateQuery{
		Callsign: contact.Callsign,
		Band:     contact.Band,
		Mode:     contact.Mode,
		From:     ts.Add(-DuplicateWindow),
		To:       ts.Add(DuplicateWindow),
	})
	if err != nil {
		c.log.Warn("duplicate lookup failed", zap.Int("record", cand.Record), zap.Error(err))
		return qso.Contact{}, false
	}
	return existing, found
}

func (c *Codec) logResult(msg string, res ImportResult) {
	c.log.Info(msg,
		zap.Int("imported", res.ImportedCount),
		zap.Int("duplicates", res.DuplicateCount),
		zap.Int("errors", res.ErrorCount),
		zap.Int("warnings", len(res.Warnings)),
	)
}

func formatFailure(err error) ImportResult {
	return ImportResult{
		ErrorCount: 1,
		Errors:     []ImportError{{LineNumber: 0, Message: err.Error(), Kind: FormatError}},
	}
}

func markAt(marks []int, i int) int {
	if i < len(marks) {
		return marks[i]
	}
	return 0
}
