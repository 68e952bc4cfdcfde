package main

import (
	"encoding/json"
	"io"

	"github.com/noah-isme/attendance-analyzer/internal/models"
	"github.com/noah-isme/attendance-analyzer/pkg/export"
)

func writeJSON(w io.Writer, result models.AnalyticsResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeCSV(w io.Writer, result models.AnalyticsResult) error {
	data, err := export.NewCSVExporter().Render(result)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
