package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/poiesic/clausematch/core"
)

// clauseFile is the on-disk form of one contract: either a bare JSON array
// of clause records or an object with a "clauses" array.
type clauseFile struct {
	Clauses []core.ClauseRecord `json:"clauses"`
}

func readClauses(path string) ([]core.ClauseRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	records, err := parseClauses(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

func parseClauses(data []byte) ([]core.ClauseRecord, error) {
	var records []core.ClauseRecord
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}
	var file clauseFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if file.Clauses == nil {
		return nil, fmt.Errorf("no clauses found")
	}
	return file.Clauses, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
