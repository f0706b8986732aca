package adif

// ADIF field tags understood by the codec.
const (
	TagCall        = "CALL"
	TagQSODate     = "QSO_DATE"
	TagTimeOn      = "TIME_ON"
	TagBand        = "BAND"
	TagFreq        = "FREQ"
	TagMode        = "MODE"
	TagRSTSent     = "RST_SENT"
	TagRSTRcvd     = "RST_RCVD"
	TagTxPwr       = "TX_PWR"
	TagGridSquare  = "GRIDSQUARE"
	TagQTH         = "QTH"
	TagCountry     = "COUNTRY"
	TagOperator    = "OPERATOR"
	TagNotes       = "NOTES"
	TagQSLSent     = "QSL_SENT"
	TagQSLRcvd     = "QSL_RCVD"
	TagQSLSentDate = "QSL_SENT_DATE"
	TagQSLRcvdDate = "QSL_RCVD_DATE"
	TagQSLMethod   = "QSL_METHOD"
	TagRig         = "RIG"
	TagAntenna     = "ANTENNA"
	TagContestID   = "CONTEST_ID"
	TagSTX         = "STX"
	TagSRX         = "SRX"
	TagDuration    = "QSO_DURATION"
	TagDXCC        = "DXCC"
)

// Version is the ADIF specification version written in export headers.
const Version = "3.1.4"

const (
	eor = "<eor>"
	eoh = "<EOH>"

	dateLayout     = "20060102"
	timeLayout     = "1504"
	dateTimeLayout = dateLayout + timeLayout

	crlf = "\r\n"
)

// headerPrefixes mark header lines skipped on import.
var headerPrefixes = []string{"Generated-By:", "ADIF_VER:", "PROGRAMID:", "PROGRAMVERSION:"}

// RequiredFields must be present and non-empty for a record to import.
var RequiredFields = []string{TagCall, TagQSODate, TagTimeOn, TagBand, TagMode}
