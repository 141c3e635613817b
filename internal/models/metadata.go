package models

import (
	"bytes"
	"encoding/json"
)

// MetadataDocument is the JSON object stored in content-addressed storage for
// every entry. Field names are part of the stored format.
type MetadataDocument struct {
	Meme              string `json:"meme"`
	DiscordMessageURL string `json:"discord_message_url"`
	TwitterURL        string `json:"twitter_url,omitempty"`
	GifURL            string `json:"gif_url"`
}

// Encode returns the canonical byte form: struct field order, no HTML
// escaping, no trailing newline. Equal documents encode to equal bytes.
func (d MetadataDocument) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func DecodeMetadata(b []byte) (MetadataDocument, error) {
	var d MetadataDocument
	err := json.Unmarshal(b, &d)
	return d, err
}
