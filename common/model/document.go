package model

import (
	"net/url"
	"strings"

	"bt-search/common/bittorrent"
	"bt-search/common/language"
)

// Extra carries the crawler statistics stored next to a descriptor in the source row.
type Extra struct {
	Seeders  int
	Leechers int
	Peers    int
	// FindTime is when the crawler first saw the torrent, in unix milliseconds.
	FindTime *int64
	// Lang is the raw source flag, 1 when the crawler saw Chinese text.
	Lang *int8
}

type Document struct {
	InfoHash          string             `json:"info_hash"`
	Name              string             `json:"name"`
	Size              int64              `json:"size"`
	Files             int                `json:"files"`
	FileList          []*bittorrent.File `json:"file_list,omitempty"`
	PieceLength       *int64             `json:"piece_length,omitempty"`
	PieceCount        *int               `json:"piece_count,omitempty"`
	CreateTime        *int64             `json:"create_time,omitempty"`
	Comment           string             `json:"comment,omitempty"`
	CreatedBy         string             `json:"created_by,omitempty"`
	Encoding          string             `json:"encoding,omitempty"`
	DetectedLanguages []string           `json:"detected_languages"`
	MagnetURI         string             `json:"magnet_uri"`
	Seeders           int                `json:"seeders"`
	Leechers          int                `json:"leechers"`
	Peers             int                `json:"peers"`
	FindTime          *int64             `json:"find_time,omitempty"`
	Lang              *int8              `json:"lang,omitempty"`
}

// NewDocument assembles the search document for one torrent. infoHash must already be
// the lowercase hex form; it is also the document id.
func NewDocument(d *bittorrent.Descriptor, infoHash string, langs language.Set, extra Extra) *Document {
	ret := &Document{
		InfoHash:          infoHash,
		Name:              d.Name,
		Size:              d.TotalSize,
		Files:             d.FileCount,
		FileList:          d.Files,
		PieceLength:       d.PieceLength,
		PieceCount:        d.PieceCount,
		Comment:           d.Comment,
		CreatedBy:         d.CreatedBy,
		Encoding:          d.Encoding,
		DetectedLanguages: langs.Codes(),
		MagnetURI:         MagnetURI(infoHash, d.Name),
		Seeders:           extra.Seeders,
		Leechers:          extra.Leechers,
		Peers:             extra.Peers,
		FindTime:          extra.FindTime,
		Lang:              extra.Lang,
	}
	if d.CreatedAt != nil {
		millis := *d.CreatedAt * 1000
		ret.CreateTime = &millis
	}
	return ret
}

// ID is the index document id.
func (d *Document) ID() string {
	return d.InfoHash
}

// MagnetURI builds magnet:?xt=urn:btih:<hash>&dn=<name>. Spaces in the name are
// escaped as %20. The dn parameter is omitted for an empty name.
func MagnetURI(infoHash, name string) string {
	builder := strings.Builder{}
	builder.WriteString("magnet:?xt=urn:btih:")
	builder.WriteString(infoHash)
	if len(name) > 0 {
		builder.WriteString("&dn=")
		builder.WriteString(strings.ReplaceAll(url.QueryEscape(name), "+", "%20"))
	}
	return builder.String()
}

// EstimatedSize approximates the serialized size of the document in bytes.
func (d *Document) EstimatedSize() int {
	const fixed = 256
	n := fixed + len(d.InfoHash) + len(d.Name) + len(d.MagnetURI) +
		len(d.Comment) + len(d.CreatedBy) + len(d.Encoding)
	for _, code := range d.DetectedLanguages {
		n += len(code) + 3
	}
	for _, f := range d.FileList {
		n += len(f.Path) + 40
	}
	return n
}
