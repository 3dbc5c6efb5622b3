package client

import (
	"github.com/cmsweb/cmaclient/client/internal/entity"
	"github.com/cmsweb/cmaclient/client/internal/resources"
	"github.com/cmsweb/cmaclient/client/internal/shardqueue"
	"github.com/cmsweb/cmaclient/client/internal/value"
)

// Public type aliases so SDK consumers can import only the client package.
type (
	// Roots and scopes
	Spaces = resources.Spaces
	Space  = resources.Space
	Scope  = resources.Scope

	// Resource entities
	Environment = resources.Environment
	ContentType = resources.ContentType
	Entry       = resources.Entry
	Asset       = resources.Asset
	Locale      = resources.Locale
	APIKey      = resources.APIKey

	// Payloads
	SpaceData        = resources.SpaceData
	EnvironmentData  = resources.EnvironmentData
	ContentTypeData  = resources.ContentTypeData
	ContentTypeField = resources.ContentTypeField
	AssetData        = resources.AssetData
	AssetFields      = resources.AssetFields
	AssetFile        = resources.AssetFile
	LocaleData       = resources.LocaleData
	APIKeyData       = resources.APIKeyData

	// Queries and configuration
	Query       = resources.Query
	PollConfig  = resources.PollConfig
	QueueConfig = shardqueue.Config

	// Entity building blocks
	Sys    = entity.Sys
	Link   = entity.Link
	State  = entity.State
	Object = value.Object
)

// Entity states.
const (
	StateNew       = entity.StateNew
	StateDraft     = entity.StateDraft
	StatePublished = entity.StatePublished
	StateUpdated   = entity.StateUpdated
	StateArchived  = entity.StateArchived
	StateDeleted   = entity.StateDeleted
)

// Kind-specific operations.
var (
	NewQuery              = resources.NewQuery
	GetPublishedStatus    = resources.GetPublishedStatus
	RegenerateAccessToken = resources.RegenerateAccessToken
	ProcessForLocale      = resources.ProcessForLocale
	IsProcessed           = resources.IsProcessed
	EntryContentTypeID    = resources.EntryContentTypeID
	EntryField            = resources.EntryField
	EntryLink             = resources.EntryLink
)
