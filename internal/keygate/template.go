package keygate

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/Magdyz/void-keygate/pkg/models"
)

// Modality names how a template's taps are interpreted at match time.
type Modality string

const (
	ModalityRhythm    Modality = "rhythm"
	ModalityStarField Modality = "starfield"
)

const templateVersion = 1

var errTemplateBlob = errors.New("template blob is invalid")

// templateBlob is the plaintext that gets sealed under a slot's
// hardware alias. CBOR keeps it compact and unambiguous; the version
// field lets the layout evolve without guessing.
type templateBlob struct {
	Version   uint32                  `cbor:"version"`
	Modality  Modality                `cbor:"modality"`
	FieldSeed []byte                  `cbor:"field_seed,omitempty"`
	Pattern   models.CanonicalPattern `cbor:"pattern"`
}

func encodeTemplate(blob templateBlob) ([]byte, error) {
	blob.Version = templateVersion
	raw, err := cbor.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	return raw, nil
}

func decodeTemplate(raw []byte) (templateBlob, error) {
	var blob templateBlob
	if err := cbor.Unmarshal(raw, &blob); err != nil {
		return templateBlob{}, errTemplateBlob
	}
	if blob.Version != templateVersion {
		return templateBlob{}, errTemplateBlob
	}
	switch blob.Modality {
	case ModalityRhythm:
		if len(blob.FieldSeed) != 0 {
			return templateBlob{}, errTemplateBlob
		}
	case ModalityStarField:
		if len(blob.FieldSeed) == 0 {
			return templateBlob{}, errTemplateBlob
		}
	default:
		return templateBlob{}, errTemplateBlob
	}
	if len(blob.Pattern.Taps) == 0 {
		return templateBlob{}, errTemplateBlob
	}
	return blob, nil
}
