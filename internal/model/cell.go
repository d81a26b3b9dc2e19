package model

// CellKind tags the variant carried by a CellValue.
type CellKind string

const (
	KindNull        CellKind = "Null"
	KindBool        CellKind = "Bool"
	KindInt         CellKind = "Int"
	KindFloat       CellKind = "Float"
	KindText        CellKind = "Text"
	KindTimestamp   CellKind = "Timestamp"
	KindBinary      CellKind = "Binary"
	KindJson        CellKind = "Json"
	KindLargeText   CellKind = "LargeText"
	KindLargeJson   CellKind = "LargeJson"
	KindLargeBinary CellKind = "LargeBinary"
)

// CellValue is the tagged union wire format for every value a driver
// returns. Only the fields relevant to Kind are populated; the rest are
// zero. A cell is converted to its Large* counterpart only when an inline
// size threshold is breached (see internal/brokerage/largecell.go).
type CellValue struct {
	Kind CellKind

	Bool      bool
	Int       int64
	Float     float64
	Text      string // also backs Timestamp and Json
	Binary    []byte
	Preview   string // LargeText/LargeJson preview
	FullLen   int    // LargeText/LargeJson/LargeBinary full_length
	PreviewLn int    // LargeBinary preview_length
}

func Null() CellValue                { return CellValue{Kind: KindNull} }
func BoolValue(b bool) CellValue     { return CellValue{Kind: KindBool, Bool: b} }
func IntValue(i int64) CellValue     { return CellValue{Kind: KindInt, Int: i} }
func FloatValue(f float64) CellValue { return CellValue{Kind: KindFloat, Float: f} }
func TextValue(s string) CellValue   { return CellValue{Kind: KindText, Text: s} }
func TimestampValue(s string) CellValue {
	return CellValue{Kind: KindTimestamp, Text: s}
}
func BinaryValue(b []byte) CellValue { return CellValue{Kind: KindBinary, Binary: b} }
func JsonValue(s string) CellValue   { return CellValue{Kind: KindJson, Text: s} }

func LargeText(preview string, fullLength int) CellValue {
	return CellValue{Kind: KindLargeText, Preview: preview, FullLen: fullLength}
}

func LargeJson(preview string, fullLength int) CellValue {
	return CellValue{Kind: KindLargeJson, Preview: preview, FullLen: fullLength}
}

func LargeBinary(previewLength, fullLength int) CellValue {
	return CellValue{Kind: KindLargeBinary, PreviewLn: previewLength, FullLen: fullLength}
}

// IsLarge reports whether the cell already carries a truncated preview.
func (c CellValue) IsLarge() bool {
	switch c.Kind {
	case KindLargeText, KindLargeJson, KindLargeBinary:
		return true
	}
	return false
}
