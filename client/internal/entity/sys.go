package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-openapi/strfmt"
)

// Sys is the reserved metadata block of every record.
type Sys struct {
	ID               string     `json:"id,omitempty"`
	Type             string     `json:"type,omitempty"`
	Version          *int       `json:"version,omitempty"`
	PublishedVersion *int       `json:"publishedVersion,omitempty"`
	ArchivedVersion  *int       `json:"archivedVersion,omitempty"`
	CreatedAt        *Timestamp `json:"createdAt,omitempty"`
	UpdatedAt        *Timestamp `json:"updatedAt,omitempty"`
	CreatedBy        *Link      `json:"createdBy,omitempty"`
	UpdatedBy        *Link      `json:"updatedBy,omitempty"`
	ContentType      *Link      `json:"contentType,omitempty"`
	Space            *Link      `json:"space,omitempty"`
	Environment      *Link      `json:"environment,omitempty"`
}

// Link is the typed form of a link placeholder inside sys.
type Link struct {
	Sys LinkSys `json:"sys"`
}

// LinkSys is the sys block of a Link.
type LinkSys struct {
	Type     string `json:"type"`
	LinkType string `json:"linkType"`
	ID       string `json:"id"`
}

// NewLink returns a link to (linkType, id).
func NewLink(linkType, id string) *Link {
	return &Link{Sys: LinkSys{Type: "Link", LinkType: linkType, ID: id}}
}

// Timestamp is a sys time. The API may send epoch milliseconds or an
// RFC 3339 string; callers always see ISO-8601.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		dt, err := strfmt.ParseDateTime(s)
		if err != nil {
			return fmt.Errorf("entity: parse timestamp %q: %w", s, err)
		}
		t.Time = time.Time(dt).UTC()
		return nil
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("entity: parse epoch timestamp %s: %w", b, err)
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// String returns the ISO-8601 form.
func (t Timestamp) String() string {
	return strfmt.DateTime(t.Time).String()
}
