package summary

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// TimeLayout is UTC with millisecond precision and a literal Z.
const TimeLayout = "2006-01-02T15:04:05.000Z"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Row is one log record with its foreign keys replaced by display names.
type Row struct {
	Gate      string `json:"gate"`
	Vehicle   string `json:"vehicle"`
	Timestamp string `json:"timestamp"`
	Access    string `json:"access"`
	Reason    string `json:"reason,omitempty"`
}

func GateLocations(gates []types.Gate) map[string]string {
	out := make(map[string]string, len(gates))
	for _, g := range gates {
		out[g.ID] = g.Location
	}
	return out
}

func VehiclePlates(vehicles []types.Vehicle) map[string]string {
	out := make(map[string]string, len(vehicles))
	for _, v := range vehicles {
		out[v.ID] = v.LicensePlate
	}
	return out
}

// BuildRows keeps the records whose timestamp is within [from, to], in
// input order. Ids missing from the maps are shown as-is.
func BuildRows(logs []types.AccessLog, gates, vehicles map[string]string, from, to time.Time) []Row {
	rows := make([]Row, 0, len(logs))
	for _, l := range logs {
		if l.Timestamp.Before(from) || l.Timestamp.After(to) {
			continue
		}
		rows = append(rows, Row{
			Gate:      lookup(gates, l.GateID),
			Vehicle:   lookup(vehicles, l.VehicleID),
			Timestamp: FormatTime(l.Timestamp),
			Access:    string(l.Access),
			Reason:    l.Reason,
		})
	}
	return rows
}

func lookup(m map[string]string, id string) string {
	if v, ok := m[id]; ok {
		return v
	}
	return id
}

// EncodeRows serializes rows as a compact JSON array.
func EncodeRows(rows []Row) (string, error) {
	if rows == nil {
		rows = []Row{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rows); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
