// Package parser decodes a catalog resource into records.
//
// The canonical record schema uses the keys name, description, creationInfo
// and link. Resources written with the legacy Portuguese keys (nome,
// descricao, data_criacao) are accepted as well; when both spellings are
// present the canonical key wins.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/langcards/internal/apperr"
	"github.com/starford/langcards/internal/models"
)

// Field aliases in lookup order. The first present, non-null key is used.
var (
	nameKeys         = []string{"name", "nome"}
	descriptionKeys  = []string{"description", "descricao", "descrição"}
	creationInfoKeys = []string{"creationInfo", "data_criacao", "ano"}
	linkKeys         = []string{"link"}
)

// Parse decodes a JSON array of record objects. Absent fields decode to the
// empty string. Any error wraps apperr.ErrResourceParse.
func Parse(data []byte) (models.Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", apperr.ErrResourceParse)
	}

	var raws []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrResourceParse, err)
	}

	out := make(models.Catalog, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			return nil, fmt.Errorf("%w: entry %d is not an object", apperr.ErrResourceParse, i)
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", apperr.ErrResourceParse, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeRecord(raw map[string]json.RawMessage) (models.Record, error) {
	var (
		rec models.Record
		err error
	)
	if rec.Name, err = field(raw, nameKeys); err != nil {
		return rec, err
	}
	if rec.Description, err = field(raw, descriptionKeys); err != nil {
		return rec, err
	}
	if rec.CreationInfo, err = field(raw, creationInfoKeys); err != nil {
		return rec, err
	}
	if rec.Link, err = field(raw, linkKeys); err != nil {
		return rec, err
	}
	return rec, nil
}

// field returns the text of the first present key. Strings are unquoted,
// numbers and booleans keep their literal JSON text (a year such as 1995 is
// common in creation info). Objects and arrays are rejected.
func field(raw map[string]json.RawMessage, keys []string) (string, error) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) == 0 || bytes.Equal(v, []byte("null")) {
			continue
		}
		switch v[0] {
		case '"':
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return "", fmt.Errorf("field %q: %w", k, err)
			}
			return s, nil
		case '{', '[':
			return "", fmt.Errorf("field %q: expected a string", k)
		default:
			return string(v), nil
		}
	}
	return "", nil
}
