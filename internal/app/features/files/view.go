package files

import (
	"encoding/json"

	"github.com/dalemusser/filesmanager/internal/domain/models"
)

// fileView is the wire shape of a file record. LocalPath is never exposed.
// ParentID is the number 0 for top-level records and a hex id otherwise.
type fileView struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsPublic bool   `json:"isPublic"`
	ParentID any    `json:"parentId"`
}

func newFileView(f *models.File) fileView {
	var parent any = 0
	if !f.IsInRoot() {
		parent = f.ParentID.Hex()
	}
	return fileView{
		ID:       f.ID.Hex(),
		UserID:   f.UserID.Hex(),
		Name:     f.Name,
		Type:     string(f.Type),
		IsPublic: f.IsPublic,
		ParentID: parent,
	}
}

// parentID accepts a JSON string, number or null. Clients send the top
// level as 0 or "0".
type parentID string

func (p *parentID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = parentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = parentID(n.String())
	return nil
}
