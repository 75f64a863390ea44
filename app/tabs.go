package app

import (
	"path/filepath"

	"plotloader/app/chart"
	"plotloader/app/fileloader"
	"plotloader/app/interfaces"
	"plotloader/app/session"
)

// FileTab is one opened file and the chart selection made on it.
type FileTab struct {
	ID       string
	FilePath string
	FileName string
	Session  *session.Session
}

// NewFileTab creates a tab for path backed by s.
func NewFileTab(id, path string, s *session.Session) *FileTab {
	return &FileTab{
		ID:       id,
		FilePath: path,
		FileName: filepath.Base(path),
		Session:  s,
	}
}

// TabInfo contains metadata about a tab for display
type TabInfo struct {
	ID        string                    `json:"id"`
	LoadID    string                    `json:"loadId"`
	FileName  string                    `json:"fileName"`
	FilePath  string                    `json:"filePath"`
	FileType  string                    `json:"fileType"`
	Delimiter string                    `json:"delimiter,omitempty"`
	ArrayPath string                    `json:"arrayPath,omitempty"` // JSONPath of the row array
	Rows      int                       `json:"rows"`
	Columns   []string                  `json:"columns"`
	Warnings  []interfaces.ParseWarning `json:"warnings,omitempty"`
	Selection chart.Selection           `json:"selection"`
	FromCache bool                      `json:"fromCache"`
}

// info describes the tab's current state.
func (t *FileTab) info() *TabInfo {
	st := t.Session.State()
	info := &TabInfo{
		ID:        t.ID,
		LoadID:    st.LoadID,
		FileName:  t.FileName,
		FilePath:  t.FilePath,
		Selection: st.Selection,
		FromCache: st.FromCache,
	}
	if table := st.Table; table != nil {
		info.FileType = table.Type.String()
		if table.Delimiter != 0 {
			info.Delimiter = string(table.Delimiter)
		}
		if table.ArrayPath != nil {
			info.ArrayPath = fileloader.ArrayPathExpression(table.ArrayPath)
		}
		info.Rows = table.Len()
		info.Columns = table.Columns()
		info.Warnings = table.Warnings
	}
	return info
}
