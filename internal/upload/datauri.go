package upload

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
)

// dataURI はdata:<mime>;base64,<payload>形式のファイルを表す。
type dataURI struct {
	MediaType string
	Data      []byte
}

// parseDataURI はbase64のdata URIを解析する。
// メディアタイプはkind（image/video）配下でなければならず、デコード後のサイズはmaxBytes以下に制限する。
func parseDataURI(raw, kind string, maxBytes int64) (*dataURI, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errMissingFile
	}
	if !strings.HasPrefix(raw, "data:") {
		return nil, fmt.Errorf("%w: expected a data URI", errInvalidFile)
	}

	header, payload, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload", errInvalidFile)
	}
	mediaType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return nil, fmt.Errorf("%w: payload must be base64 encoded", errInvalidFile)
	}

	mediaType, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid media type", errInvalidFile)
	}
	if !strings.HasPrefix(mediaType, kind+"/") {
		return nil, fmt.Errorf("%w: %s is not an %s type", errInvalidFile, mediaType, kind)
	}

	// デコード前に大きすぎる入力を弾く
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, errTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload", errInvalidFile)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", errInvalidFile)
	}
	if int64(len(data)) > maxBytes {
		return nil, errTooLarge
	}
	return &dataURI{MediaType: mediaType, Data: data}, nil
}

// String はdata URI形式に再エンコードする。
func (d *dataURI) String() string {
	return "data:" + d.MediaType + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}
