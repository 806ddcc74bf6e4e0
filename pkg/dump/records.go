package dump

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/cruds/pkg/types"
)

// Export serializes every record of the adapter's model.
func Export(ctx context.Context, a types.Adapter, format string) ([]byte, error) {
	if !Supported(format) {
		return nil, fmt.Errorf("%q: %w", format, ErrFormatNotImplemented)
	}
	records, err := a.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", a.Model().Slug(), err)
	}
	dumps := make([]map[string]any, 0, len(records))
	for _, r := range records {
		dumps = append(dumps, a.Dump(r))
	}
	return Marshal(format, dumps)
}

// Import decodes data and saves each entry through the adapter, erasing the
// model's records first when erase is set. Every entry is decoded before
// anything is erased, so malformed content leaves the store untouched.
// It returns the number of records saved.
func Import(ctx context.Context, a types.Adapter, format string, data []byte, erase bool) (int, error) {
	entries, err := Unmarshal(format, data)
	if err != nil {
		return 0, err
	}
	records := make([]*types.Record, 0, len(entries))
	for i, entry := range entries {
		r, err := a.FromData(entry)
		if err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
		records = append(records, r)
	}

	if erase {
		if err := a.Erase(ctx); err != nil {
			return 0, fmt.Errorf("erasing %s: %w", a.Model().Slug(), err)
		}
	}
	for i, r := range records {
		if _, err := a.Save(ctx, r); err != nil {
			return i, fmt.Errorf("saving entry %d: %w", i, err)
		}
	}
	return len(records), nil
}
