// Package adif reads and writes contact logs in the Amateur Data Interchange
// Format.
//
// The codec produces and consumes the tagged, length-prefixed text form of
// ADIF. Exports are byte-compatible with the logs written by earlier releases
// of the application, and imports accept anything those releases wrote.
//
// # Wire Format
//
// A file starts with a header block and is followed by one line per contact:
//
//	Generated-By: QSO Log
//	ADIF_VER: 3.1.4
//	PROGRAMID: QSO Log
//	PROGRAMVERSION: 1.0
//	<EOH>
//	<CALL:5>K1ABC<QSO_DATE:8>20240115<TIME_ON:4>1430<BAND:3>20m<MODE:3>SSB<eor>
//
// Lines end with CR-LF. Each field is written as
//
//	<TAG:LEN>VALUE
//
// where LEN is the number of characters in VALUE. VALUE is not escaped, so
// '<', '>', ':' and line breaks may appear in it; a value holding a line
// break continues the record on the next physical line. On import, lines may
// end with CR-LF, LF or a bare CR. The record terminator <eor> is lower case
// and the header terminator <EOH> is upper case; both are matched literally.
//
// Fields are written in a fixed order: CALL, QSO_DATE, TIME_ON, BAND, MODE,
// FREQ, RST_SENT, RST_RCVD, TX_PWR, GRIDSQUARE, QTH, DXCC, OPERATOR, NOTES,
// RIG, ANTENNA, CONTEST_ID, STX, SRX, QSO_DURATION, QSL_SENT, QSL_SENT_DATE,
// QSL_RCVD, QSL_RCVD_DATE, QSL_METHOD. Text fields are written when non-empty.
// Numeric fields are written only when greater than zero, so a stored zero
// does not survive a round trip.
//
// # Import
//
// Import runs in two stages. Parse is pure: it checks that the text looks
// like ADIF at all, scans it into records, validates each record and builds
// candidate contacts. Commit takes the candidates, skips any that duplicate
// an existing contact (same callsign, band and mode within two minutes) and
// creates the rest through a storage.ContactStore.
//
// Problems are reported, never fatal, with the single exception of text that
// fails the format check. Unparseable lines produce warnings citing the
// physical line number. Validation problems, duplicates and write failures
// cite the 1-based record number.
//
// # Usage
//
//	codec := adif.NewCodec(adif.Options{})
//
//	text := codec.Export(contacts)
//
//	result := codec.Import(ctx, text, logbook)
//	fmt.Println(result.Summary())
//
// Preview performs the same import inside a scratch transaction that is
// discarded afterwards, so the logbook is left untouched:
//
//	result, err := codec.Preview(ctx, text, logbook)
package adif
