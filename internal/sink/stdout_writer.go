// Writer implementation printing status rows to STDOUT
package sink

import (
	"encoding/json"
	"fmt"

	"robodash/internal/telemetry"
)

// StdoutJSONWriter prints one JSON line per status row.
type StdoutJSONWriter struct{}

// Write outputs a single status row.
func (w *StdoutJSONWriter) Write(row telemetry.StatusRow) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
