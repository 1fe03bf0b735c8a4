package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Source identifies the platform family a record was collected from. It also
// names the key in the processed data file and the raw warehouse table.
type Source string

const (
	SourceYouTube     Source = "youtube"
	SourceSpotify     Source = "spotify"
	SourceSocialMedia Source = "social_media"
	SourceStreaming   Source = "streaming"
)

// Sources lists every source in processing order.
var Sources = []Source{SourceYouTube, SourceSpotify, SourceSocialMedia, SourceStreaming}

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks whether the source is a known value.
func (s Source) IsValid() bool {
	switch s {
	case SourceYouTube, SourceSpotify, SourceSocialMedia, SourceStreaming:
		return true
	}
	return false
}

// Table returns the raw warehouse table that receives records of this source.
func (s Source) Table() string {
	return "raw_" + string(s) + "_data"
}

// DataType tags what kind of entity a flat record describes.
type DataType string

const (
	DataTypeChannel  DataType = "channel"
	DataTypeVideo    DataType = "video"
	DataTypeTrending DataType = "trending"
	DataTypeArtist   DataType = "artist"
	DataTypeAlbum    DataType = "album"
	DataTypePlaylist DataType = "playlist"
	DataTypeAccount  DataType = "account"
	DataTypePost     DataType = "post"
	DataTypeTitle    DataType = "title"
	DataTypeGenre    DataType = "genre"
)

// Record is a flat analytics record produced by a collector.
type Record interface {
	// RecordID returns the warehouse primary key of the record.
	RecordID() string
	// Source returns the platform family of the record.
	Source() Source
	// Validate returns a *ValidationError when the record must not be loaded.
	Validate() error
	// Normalize trims and canonicalizes string fields in place.
	Normalize()
	// NullCount reports how many optional fields carry no value.
	NullCount() int
	// NullableFields reports how many optional fields NullCount examines.
	NullableFields() int
}

// IsNil reports whether r is nil or a nil record pointer.
func IsNil(r Record) bool {
	switch v := r.(type) {
	case nil:
		return true
	case *VideoAnalytics:
		return v == nil
	case *MusicAnalytics:
		return v == nil
	case *SocialAnalytics:
		return v == nil
	case *StreamingAnalytics:
		return v == nil
	}
	return false
}

// Row is a Record that maps onto a warehouse table row.
type Row interface {
	Record
	// Columns returns the column names in the order of Values.
	Columns() []string
	// Values returns the column values. []string values map to text arrays.
	Values() []any
}

// dateStampLayout formats the collection day embedded in record IDs.
const dateStampLayout = "20060102"

// MakeID builds a record ID of the form <prefix>_<entity>_<YYYYMMDD>, which
// makes re-collection of the same entity on the same day idempotent.
func MakeID(prefix, entityID string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s", prefix, entityID, at.Format(dateStampLayout))
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }

// StringPtr returns a pointer to v, or nil when v is empty.
func StringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// DecodeRows decodes a JSON array of records of the given source.
func DecodeRows(source Source, data []byte) ([]Row, error) {
	switch source {
	case SourceYouTube:
		return decodeInto[VideoAnalytics](data)
	case SourceSpotify:
		return decodeInto[MusicAnalytics](data)
	case SourceSocialMedia:
		return decodeInto[SocialAnalytics](data)
	case SourceStreaming:
		return decodeInto[StreamingAnalytics](data)
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

// rowPtr constrains T so that *T implements Row.
type rowPtr[T any] interface {
	*T
	Row
}

func decodeInto[T any, P rowPtr[T]](data []byte) ([]Row, error) {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	rows := make([]Row, 0, len(items))
	for i := range items {
		rows = append(rows, P(&items[i]))
	}
	return rows, nil
}
