package bittorrent

import (
	"math"
	"strings"
	"unicode/utf8"

	"bt-search/common/bencode"

	"github.com/juju/errors"
	"golang.org/x/text/encoding/charmap"
)

const (
	pieceHashSize = 20
	maxCreatedAt  = math.MaxInt64 / 1000
	minCreatedAt  = math.MinInt64 / 1000
)

var (
	ErrMissingInfoDictionary = errors.New("missing info dictionary")
	ErrInvalidLength         = errors.New("invalid length")
)

// Descriptor is the normalized view of a torrent info dictionary.
type Descriptor struct {
	Name        string
	TotalSize   int64
	FileCount   int
	Files       []*File
	PieceLength *int64
	PieceCount  *int
	// CreatedAt is the "creation date" field in unix seconds.
	CreatedAt *int64
	Comment   string
	CreatedBy string
	Encoding  string
}

// ParseDescriptor decodes blob and extracts its descriptor.
func ParseDescriptor(blob []byte) (*Descriptor, error) {
	root, err := bencode.Decode(blob)
	if err != nil {
		return nil, err
	}
	return Extract(root)
}

// Extract reads a descriptor from a decoded dict. The dict may either be a full
// torrent file with a nested "info" dict, or the info dict itself as stored by DHT
// crawlers. When the root carries its own name, length or files it is treated as the
// info dict even if a nested "info" exists.
func Extract(root bencode.Dict) (*Descriptor, error) {
	info, err := infoDict(root)
	if err != nil {
		return nil, err
	}

	ret := &Descriptor{
		Name: textField(info, "name"),
	}

	files, hasFiles := bencode.GetList(info, "files")
	length, hasLength := bencode.GetInt(info, "length")
	switch {
	case hasFiles:
		ret.Files = make([]*File, 0, len(files))
		for _, item := range files {
			entry, ok := item.(bencode.Dict)
			if !ok {
				continue
			}
			f, err := extractFile(entry)
			if err != nil {
				return nil, err
			}
			if f.Length > math.MaxInt64-ret.TotalSize {
				return nil, errors.Annotatef(ErrInvalidLength, "total size overflows at %q", f.Path)
			}
			ret.Files = append(ret.Files, f)
			ret.TotalSize += f.Length
		}
		ret.FileCount = len(ret.Files)
	case hasLength:
		if length < 0 {
			return nil, errors.Annotatef(ErrInvalidLength, "length %d", length)
		}
		ret.TotalSize = length
		ret.FileCount = 1
		ret.Files = []*File{{Path: ret.Name, Length: length}}
	}

	if pieceLength, ok := bencode.GetInt(info, "piece length"); ok {
		ret.PieceLength = &pieceLength
	}
	if pieces, ok := bencode.GetBytes(info, "pieces"); ok {
		count := len(pieces) / pieceHashSize
		ret.PieceCount = &count
	}

	// Dates that cannot be expressed in milliseconds are dropped.
	if created, ok := bencode.GetInt(root, "creation date"); ok && created >= minCreatedAt && created <= maxCreatedAt {
		ret.CreatedAt = &created
	}
	ret.Comment = textField(root, "comment")
	ret.CreatedBy = textField(root, "created by")
	ret.Encoding = textField(root, "encoding")
	return ret, nil
}

func infoDict(root bencode.Dict) (bencode.Dict, error) {
	if root.Has("name") || root.Has("length") || root.Has("files") {
		return root, nil
	}
	if info, ok := bencode.GetDict(root, "info"); ok {
		return info, nil
	}
	return bencode.Dict{}, errors.Trace(ErrMissingInfoDictionary)
}

func extractFile(entry bencode.Dict) (*File, error) {
	ret := &File{}
	if length, ok := bencode.GetInt(entry, "length"); ok {
		if length < 0 {
			return nil, errors.Annotatef(ErrInvalidLength, "file length %d", length)
		}
		ret.Length = length
	}
	path, ok := entry.Get("path.utf-8")
	if !ok {
		path, _ = entry.Get("path")
	}
	if parts, ok := path.(bencode.List); ok {
		segments := make([]string, 0, len(parts))
		for _, part := range parts {
			if b, ok := part.(bencode.Bytes); ok {
				segments = append(segments, decodeText(b))
			}
		}
		ret.Path = strings.Join(segments, "/")
	}
	return ret, nil
}

// textField prefers the "<key>.utf-8" variant some clients write next to legacy
// encoded values.
func textField(d bencode.Dict, key string) string {
	if v, ok := d.Get(key + ".utf-8"); ok {
		if b, ok := v.(bencode.Bytes); ok && utf8.Valid(b) {
			return string(b)
		}
	}
	v, ok := d.Get(key)
	if !ok {
		return ""
	}
	b, ok := v.(bencode.Bytes)
	if !ok {
		return ""
	}
	return decodeText(b)
}

// decodeText returns b as UTF-8 when it is valid, otherwise interprets it as
// ISO-8859-1, which maps every byte to a rune.
func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	ret, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(ret)
}
