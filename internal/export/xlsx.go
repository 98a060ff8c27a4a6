package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"story-intake-go/internal/types"
)

const sheetName = "Stories"

var header = []interface{}{
	"ID", "Name", "Anonymous", "Birthdate", "Email", "Story Title",
	"Submitted At", "Transcript Requested", "IP", "User Agent",
}

// BuildWorkbook renders the stored stories into a workbook, one row per
// story. Audio never reaches the store, so nothing audio-related appears.
func BuildWorkbook(stories []types.Story) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, s := range stories {
		row := []interface{}{
			s.ID,
			s.Name,
			s.Anonymous,
			s.Birthdate,
			s.Email,
			s.StoryTitle,
			s.Timestamp.Format(time.RFC3339),
			s.TranscriptRequested,
			s.IP,
			s.UserAgent,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f, nil
}

// WriteStories writes the workbook to disk.
func WriteStories(stories []types.Story, path string) error {
	f, err := BuildWorkbook(stories)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
