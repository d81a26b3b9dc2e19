package exportimport

import (
	"encoding/json"
	"fmt"

	"github.com/berbicanes/queryark/internal/model"
)

// jsonCellValue projects a cell to a value encoding/json can marshal with
// native types preserved (numbers as numbers, booleans as booleans, null as
// null), per §4.9 "JSON export". Json cells attempt a parse; on failure
// they fall back to their raw text.
func jsonCellValue(c model.CellValue) interface{} {
	switch c.Kind {
	case model.KindNull:
		return nil
	case model.KindBool:
		return c.Bool
	case model.KindInt:
		return c.Int
	case model.KindFloat:
		return c.Float
	case model.KindText, model.KindTimestamp:
		return c.Text
	case model.KindJson:
		return parseJSONOrString(c.Text)
	case model.KindBinary:
		return hexEscape(c.Binary)
	case model.KindLargeText:
		return c.Preview
	case model.KindLargeJson:
		return parseJSONOrString(c.Preview)
	case model.KindLargeBinary:
		return fmt.Sprintf("[%d bytes]", c.FullLen)
	default:
		return nil
	}
}

func parseJSONOrString(text string) interface{} {
	var parsed interface{}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return text
	}
	return parsed
}
