package pricing

import (
	"context"
	"errors"
	"fmt"

	"pricewatch/internal/fileid"
	"pricewatch/pkg/logger"
)

// TextFetcher is the text fetch capability the loader depends on.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Loader fetches the raw data file for a file id and parses it.
type Loader struct {
	fetcher TextFetcher
	locator fileid.Locator
	parser  *Parser
	logger  *logger.Logger
}

func NewLoader(fetcher TextFetcher, locator fileid.Locator, parser *Parser, l *logger.Logger) *Loader {
	if l == nil {
		l = logger.GetDefault()
	}
	if parser == nil {
		parser = NewParser(WithSourceURL(locator.BrowseURL))
	}
	return &Loader{fetcher: fetcher, locator: locator, parser: parser, logger: l}
}

// Load returns the model for fileID. A failed fetch is returned as
// *fetch.NetworkError, malformed content as *FormatError.
func (l *Loader) Load(ctx context.Context, fileID string) (*Model, error) {
	if _, ok := fileid.Parse(fileID); !ok {
		return nil, &FormatError{SourceID: fileID, Reason: "not a valid file id"}
	}

	url := l.locator.DataURL(fileID)
	raw, err := l.fetcher.FetchText(ctx, url)
	if err != nil {
		l.logger.LogLoadFailed(ctx, "pricing", url, err)
		return nil, fmt.Errorf("load pricing %s: %w", fileID, err)
	}

	model, err := l.parser.Parse(raw, fileID)
	if err != nil {
		l.logger.LogLoadFailed(ctx, "pricing", url, err)
		return nil, fmt.Errorf("load pricing %s: %w", fileID, err)
	}

	for _, w := range model.Warnings {
		l.logger.WarnWithContext(ctx, "Price row skipped", map[string]interface{}{
			"file_id": fileID,
			"warning": w,
		})
	}
	l.logger.LogPricingLoaded(ctx, fileID, len(model.Terms), len(model.Warnings), model.LastUpdated)
	return model, nil
}

// IsFormatError reports whether err carries a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
