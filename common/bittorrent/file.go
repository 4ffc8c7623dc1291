package bittorrent

// File is one entry of a descriptor's file list. Path components are joined with "/".
type File struct {
	Path   string `json:"path"`
	Length int64  `json:"length"`
}
