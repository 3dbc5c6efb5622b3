package resources

import (
	"sort"

	"github.com/cmsweb/cmaclient/client/internal/entity"
	"github.com/cmsweb/cmaclient/client/internal/value"
)

// sys.type values of the resource kinds.
const (
	TypeSpace       = "Space"
	TypeEnvironment = "Environment"
	TypeContentType = "ContentType"
	TypeEntry       = "Entry"
	TypeAsset       = "Asset"
	TypeLocale      = "Locale"
	TypeAPIKey      = "ApiKey"
)

// Header names used on create.
const (
	ContentTypeHeader  = "X-Contentful-Content-Type"
	OrganizationHeader = "X-Contentful-Organization"
)

// SpaceData is the payload of a space.
type SpaceData struct {
	Name          string `json:"name"`
	DefaultLocale string `json:"defaultLocale,omitempty"`

	// Organization is sent as a header when the space is created.
	Organization string `json:"-"`
}

// EnvironmentData is the payload of an environment.
type EnvironmentData struct {
	Name string `json:"name"`
}

// ContentTypeData is the payload of a content type.
type ContentTypeData struct {
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	DisplayField string             `json:"displayField,omitempty"`
	Fields       []ContentTypeField `json:"fields"`
}

// ContentTypeField describes one field of a content type.
type ContentTypeField struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	LinkType  string      `json:"linkType,omitempty"`
	Items     *FieldItems `json:"items,omitempty"`
	Localized bool        `json:"localized,omitempty"`
	Required  bool        `json:"required,omitempty"`
	Disabled  bool        `json:"disabled,omitempty"`
	Omitted   bool        `json:"omitted,omitempty"`
}

// FieldItems describes the elements of an Array field.
type FieldItems struct {
	Type     string `json:"type"`
	LinkType string `json:"linkType,omitempty"`
}

// AssetData is the payload of an asset.
type AssetData struct {
	Fields AssetFields `json:"fields"`
}

// AssetFields holds localized asset fields keyed by locale code.
type AssetFields struct {
	Title       map[string]string     `json:"title,omitempty"`
	Description map[string]string     `json:"description,omitempty"`
	File        map[string]*AssetFile `json:"file,omitempty"`
}

// AssetFile is one locale's file. URL is set once the upload is processed.
type AssetFile struct {
	URL         string         `json:"url,omitempty"`
	Upload      string         `json:"upload,omitempty"`
	FileName    string         `json:"fileName,omitempty"`
	ContentType string         `json:"contentType,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// LocaleData is the payload of a locale.
type LocaleData struct {
	Name                 string  `json:"name"`
	Code                 string  `json:"code"`
	FallbackCode         *string `json:"fallbackCode"`
	Default              bool    `json:"default,omitempty"`
	InternalCode         string  `json:"internal_code,omitempty"`
	ContentDeliveryAPI   bool    `json:"contentDeliveryApi"`
	ContentManagementAPI bool    `json:"contentManagementApi"`
	Optional             bool    `json:"optional"`
}

// APIKeyData is the payload of a delivery API key.
type APIKeyData struct {
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	AccessToken   string        `json:"accessToken,omitempty"`
	Environments  []entity.Link `json:"environments,omitempty"`
	PreviewAPIKey *entity.Link  `json:"preview_api_key,omitempty"`
}

// Entity aliases for the concrete kinds.
type (
	Environment = entity.Entity[EnvironmentData]
	ContentType = entity.Entity[ContentTypeData]
	Entry       = entity.Entity[*value.Object]
	Asset       = entity.Entity[AssetData]
	Locale      = entity.Entity[LocaleData]
	APIKey      = entity.Entity[APIKeyData]
)

var (
	SpaceKind = &entity.Kind[SpaceData]{
		Type:  TypeSpace,
		Codec: entity.JSONCodec[SpaceData]{},
		Name:  func(p SpaceData) string { return p.Name },
		CreateHeaders: func(rec *entity.Record[SpaceData]) map[string]string {
			if rec.Data.Organization == "" {
				return nil
			}
			return map[string]string{OrganizationHeader: rec.Data.Organization}
		},
	}

	EnvironmentKind = &entity.Kind[EnvironmentData]{
		Type:  TypeEnvironment,
		Codec: entity.JSONCodec[EnvironmentData]{},
		Name:  func(p EnvironmentData) string { return p.Name },
	}

	// ContentTypeKind keys published snapshots apart from drafts.
	ContentTypeKind = &entity.Kind[ContentTypeData]{
		Type:     TypeContentType,
		Codec:    entity.JSONCodec[ContentTypeData]{},
		Caps:     entity.Publishable,
		Identity: entity.PublishedSnapshotIdentity[ContentTypeData],
		Name:     func(p ContentTypeData) string { return p.Name },
	}

	// EntryKind keeps the parsed document as payload so link patches made
	// by a list resolution stay visible through the entity.
	EntryKind = &entity.Kind[*value.Object]{
		Type:          TypeEntry,
		Codec:         entity.NodeCodec{},
		Caps:          entity.Publishable | entity.Archivable,
		Name:          entryName,
		CreateHeaders: entryCreateHeaders,
	}

	AssetKind = &entity.Kind[AssetData]{
		Type:  TypeAsset,
		Codec: entity.JSONCodec[AssetData]{},
		Caps:  entity.Publishable | entity.Archivable,
		Name:  func(p AssetData) string { return firstLocalized(p.Fields.Title) },
	}

	// LocaleKind never sends the server-managed default and internal_code
	// flags.
	LocaleKind = &entity.Kind[LocaleData]{
		Type:      TypeLocale,
		Codec:     entity.JSONCodec[LocaleData]{},
		Name:      func(p LocaleData) string { return p.Name },
		Serialize: omitting[LocaleData]("default", "internal_code"),
	}

	// APIKeyKind never sends the access token back.
	APIKeyKind = &entity.Kind[APIKeyData]{
		Type:      TypeAPIKey,
		Codec:     entity.JSONCodec[APIKeyData]{},
		Name:      func(p APIKeyData) string { return p.Name },
		Serialize: omitting[APIKeyData]("accessToken"),
	}
)

// omitting returns a Serialize hook that drops keys from the full record.
func omitting[P any](keys ...string) func(*entity.Record[P]) (any, error) {
	return func(rec *entity.Record[P]) (any, error) {
		doc, err := entity.EncodeRecord[P](entity.JSONCodec[P]{}, rec)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			doc.Delete(k)
		}
		return doc, nil
	}
}

func entryName(doc *value.Object) string {
	if doc == nil {
		return ""
	}
	for _, field := range []string{"title", "name"} {
		v, ok := doc.Lookup("fields", field)
		if !ok {
			continue
		}
		locales, ok := v.(*value.Object)
		if !ok {
			continue
		}
		for _, loc := range locales.Keys() {
			if s := locales.Str(loc); s != "" {
				return s
			}
		}
	}
	return ""
}

func entryCreateHeaders(rec *entity.Record[*value.Object]) map[string]string {
	ct := rec.Sys.ContentType
	if ct == nil || ct.Sys.ID == "" {
		return nil
	}
	return map[string]string{ContentTypeHeader: ct.Sys.ID}
}

// firstLocalized returns the en-US value, else the value of the first locale
// in code order.
func firstLocalized(m map[string]string) string {
	if v, ok := m["en-US"]; ok {
		return v
	}
	if len(m) == 0 {
		return ""
	}
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return m[codes[0]]
}
