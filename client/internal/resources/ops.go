package resources

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/cmsweb/cmaclient/client/internal/entity"
	"github.com/cmsweb/cmaclient/client/internal/persistence"
	"github.com/cmsweb/cmaclient/client/internal/value"
)

// ErrAssetNotProcessed is returned when an asset is still unprocessed after
// the poll timeout.
var ErrAssetNotProcessed = errors.New("asset not processed")

// GetPublishedStatus fetches the published copy of ct. The copy is a
// separate entity with identity "ContentType.published.{id}"; repeated calls
// update and return the same instance.
func GetPublishedStatus(ctx context.Context, ct *ContentType) (*ContentType, error) {
	raw, err := ct.Endpoint("published").RejectEmpty().Get(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := entity.FromJSON(ct.Kind(), ct.Context(), raw, entity.AsPublishedSnapshot())
	if err != nil {
		return nil, err
	}
	return persistence.Store(ct.Context(), snap), nil
}

// RegenerateAccessToken asks the server for a new delivery token and merges
// the key. An empty response fails with request.ErrResponseNotAvailable.
func RegenerateAccessToken(ctx context.Context, key *APIKey) error {
	return key.Mutate(ctx, key.Endpoint("regenerate").RejectEmpty(), http.MethodPut)
}

// ProcessForLocale starts processing of the asset's upload for locale and
// polls until the file has a URL. The poll only re-reads the asset; a failed
// read ends it.
func ProcessForLocale(ctx context.Context, asset *Asset, locale string, poll PollConfig) error {
	poll = poll.withDefaults()
	if err := asset.Mutate(ctx, asset.Endpoint("files", locale, "process"), http.MethodPut); err != nil {
		return err
	}

	pollCtx, cancel := context.WithTimeout(ctx, poll.Timeout)
	defer cancel()

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		if err := asset.Reload(pollCtx); err != nil {
			return backoff.Permanent(err)
		}
		if !IsProcessed(asset, locale) {
			return ErrAssetNotProcessed
		}
		return nil
	}, backoff.WithContext(backoff.NewConstantBackOff(poll.Interval), pollCtx))

	switch {
	case err == nil:
		log.Debug().Str("asset", asset.ID()).Str("locale", locale).Int("polls", attempts).Msg("asset processed")
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s/%s after %s", ErrAssetNotProcessed, asset.ID(), locale, poll.Timeout)
	default:
		return err
	}
}

// IsProcessed reports whether the asset's file for locale has a URL.
func IsProcessed(asset *Asset, locale string) bool {
	f := asset.Payload().Fields.File[locale]
	return f != nil && f.URL != ""
}

// EntryContentTypeID returns the id of the entry's content type.
func EntryContentTypeID(e *Entry) string {
	if ct := e.Sys().ContentType; ct != nil {
		return ct.Sys.ID
	}
	return ""
}

// EntryField returns fields.{field}.{locale}.
func EntryField(e *Entry, field, locale string) (value.Value, bool) {
	doc := e.Payload()
	if doc == nil {
		return nil, false
	}
	return doc.Lookup("fields", field, locale)
}

// EntryLink returns the resolved target of a link field, or nil when the
// field is not a link resolved by a list call.
func EntryLink(e *Entry, field, locale string) any {
	v, ok := EntryField(e, field, locale)
	if !ok {
		return nil
	}
	if ref, ok := v.(*value.Ref); ok {
		return ref.Target
	}
	return nil
}
