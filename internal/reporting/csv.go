package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderCSV renders the trade log as CSV string.
func RenderCSV(trades []TradeRow) string {
	var sb strings.Builder

	sb.WriteString("seq,timestamp,side,price,size,value\n")

	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%.6f,%.6f,%.6f\n",
			t.Seq,
			t.Timestamp.UTC().Format(time.RFC3339),
			t.Side,
			t.Price,
			t.Size,
			t.Value,
		))
	}

	return sb.String()
}
