package adif

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImportResult_Summary(t *testing.T) {
	manyErrors := make([]ImportError, 7)
	for i := range manyErrors {
		manyErrors[i] = ImportError{LineNumber: i + 1, Message: fmt.Sprintf("problem %d", i+1)}
	}

	tests := []struct {
		name string
		res  ImportResult
		want string
	}{
		{
			name: "nothing",
			res:  ImportResult{},
			want: "No QSOs imported",
		},
		{
			name: "clean import",
			res:  ImportResult{ImportedCount: 3},
			want: "Successfully imported 3 QSO(s)",
		},
		{
			name: "preview",
			res:  ImportResult{ImportedCount: 2, Preview: true},
			want: "Would import 2 QSO(s)",
		},
		{
			name: "duplicates and warnings",
			res: ImportResult{
				ImportedCount:  1,
				DuplicateCount: 1,
				Warnings: []ImportWarning{
					{LineNumber: 1, Message: "Unrecognized band: 99m"},
					{LineNumber: 2, Message: "Duplicate QSO found: K1ABC on 20m SSB"},
					{LineNumber: 3, Message: "Invalid RST_SENT format: 59"},
					{LineNumber: 4, Message: "not shown"},
				},
			},
			want: "Successfully imported 1 QSO(s)\n" +
				"Found 1 duplicate QSO(s) - skipped\n" +
				"4 warning(s) during import\n\n" +
				"First few warnings:\n" +
				"Line 1: Unrecognized band: 99m\n" +
				"Line 2: Duplicate QSO found: K1ABC on 20m SSB\n" +
				"Line 3: Invalid RST_SENT format: 59",
		},
		{
			name: "errors take precedence over warnings",
			res: ImportResult{
				ErrorCount: 7,
				Errors:     manyErrors,
				Warnings:   []ImportWarning{{LineNumber: 9, Message: "hidden"}},
			},
			want: "7 QSO(s) failed to import due to errors\n" +
				"1 warning(s) during import\n\n" +
				"First few errors:\n" +
				"Line 1: problem 1\nLine 2: problem 2\nLine 3: problem 3\nLine 4: problem 4\nLine 5: problem 5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.Summary())
		})
	}
}

func TestImportResult_FormatFailed(t *testing.T) {
	formatErr := ImportError{LineNumber: 0, Message: "Invalid ADIF format", Kind: FormatError}
	recordErr := ImportError{LineNumber: 2, Message: "Missing required field: CALL", Kind: ValidationError}

	assert.False(t, ImportResult{}.FormatFailed())
	assert.True(t, ImportResult{ErrorCount: 1, Errors: []ImportError{formatErr}}.FormatFailed())
	assert.False(t, ImportResult{ErrorCount: 1, Errors: []ImportError{recordErr}}.FormatFailed())
	assert.False(t, ImportResult{ErrorCount: 2, Errors: []ImportError{formatErr, recordErr}}.FormatFailed())
}
