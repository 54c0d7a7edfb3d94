package xtream

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Panels are inconsistent about scalar types: the same field arrives as a
// number on one server and a quoted string (or null) on another. The Flex*
// types accept all of those.

// FlexInt decodes an integer from a number, a numeric string, or null.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = FlexInt(n)
		return nil
	}

	fl, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("xtream: not an integer: %q", s)
	}

	*f = FlexInt(int64(fl))

	return nil
}

// FlexFloat decodes a float from a number, a numeric string, or null.
// Unparseable strings (some panels send "N/A") decode as zero.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)

	fl, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}

	*f = FlexFloat(fl)

	return nil
}

// FlexString decodes a string from a string, a number, a bool, or null.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	switch {
	case len(b) == 0 || string(b) == "null":
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}

		*f = FlexString(s)
	case b[0] == '[' || b[0] == '{':
		return fmt.Errorf("xtream: not a scalar: %s", b)
	default:
		*f = FlexString(b)
	}

	return nil
}

// FlexBool decodes 0/1, "0"/"1", true/false, and null.
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)

	switch s {
	case "1", "true":
		*f = true
	default:
		*f = false
	}

	return nil
}

// Category is one entry of get_*_categories.
type Category struct {
	CategoryID   FlexString `json:"category_id"`
	CategoryName FlexString `json:"category_name"`
	ParentID     FlexString `json:"parent_id"`
}

// LiveStream is one entry of get_live_streams.
type LiveStream struct {
	Num          FlexInt    `json:"num"`
	Name         FlexString `json:"name"`
	StreamID     FlexInt    `json:"stream_id"`
	StreamIcon   FlexString `json:"stream_icon"`
	EPGChannelID FlexString `json:"epg_channel_id"`
	Added        FlexInt    `json:"added"`
	CategoryID   FlexString `json:"category_id"`
	TVArchive    FlexBool   `json:"tv_archive"`
}

// VODStream is one entry of get_vod_streams.
type VODStream struct {
	Num                FlexInt    `json:"num"`
	Name               FlexString `json:"name"`
	StreamID           FlexInt    `json:"stream_id"`
	StreamIcon         FlexString `json:"stream_icon"`
	Rating             FlexFloat  `json:"rating"`
	Added              FlexInt    `json:"added"`
	CategoryID         FlexString `json:"category_id"`
	ContainerExtension FlexString `json:"container_extension"`
}

// Series is one entry of get_series.
type Series struct {
	Num          FlexInt    `json:"num"`
	Name         FlexString `json:"name"`
	SeriesID     FlexInt    `json:"series_id"`
	Cover        FlexString `json:"cover"`
	Plot         FlexString `json:"plot"`
	Genre        FlexString `json:"genre"`
	ReleaseDate  FlexString `json:"releaseDate"`
	LastModified FlexInt    `json:"last_modified"`
	Rating       FlexFloat  `json:"rating"`
	CategoryID   FlexString `json:"category_id"`
}

// AccountInfo is the user_info block of the bare player_api.php response.
type AccountInfo struct {
	Username       FlexString `json:"username"`
	Auth           FlexBool   `json:"auth"`
	Status         FlexString `json:"status"`
	ExpDate        FlexInt    `json:"exp_date"`
	MaxConnections FlexInt    `json:"max_connections"`
	ActiveCons     FlexInt    `json:"active_cons"`
}

type authResponse struct {
	UserInfo AccountInfo `json:"user_info"`
}
